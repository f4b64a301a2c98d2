package people

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sitedex/sitedex/domain/items"
)

func strPtr(s string) *string { return &s }

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		contact items.Contact
		want    string
	}{
		{
			name:    "display name preferred",
			contact: items.Contact{DisplayName: strPtr("Ada Lovelace"), Email: strPtr("ada@x.com"), ExternalID: "u1"},
			want:    "Ada Lovelace",
		},
		{
			name:    "email fallback",
			contact: items.Contact{Email: strPtr("ada@x.com"), ExternalID: "u1"},
			want:    "ada@x.com",
		},
		{
			name:    "empty display name ignored",
			contact: items.Contact{DisplayName: strPtr(""), Email: strPtr("ada@x.com"), ExternalID: "u1"},
			want:    "ada@x.com",
		},
		{
			name:    "external id last resort",
			contact: items.Contact{ExternalID: "u1"},
			want:    "u1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(&tt.contact))
		})
	}
}
