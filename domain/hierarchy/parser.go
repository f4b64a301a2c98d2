package hierarchy

import (
	"strings"
	"unicode"
)

// Defaults used when a location tag omits the building or level segment.
const (
	DefaultBuilding = "General"
	DefaultLevel    = "0"
)

// LocationTag is the parsed position of a location tag.
type LocationTag struct {
	Building string
	Level    string
	Room     string
}

// ParseLocationTag parses a flat tag like "loc:A-2-214" into a hierarchy
// position. The prefix match is case-insensitive; the remainder is split on
// hyphens:
//
//	1 segment  -> room only (default building and level)
//	2 segments -> building + room (default level)
//	3 segments -> building + level + room
//
// Tags without the prefix yield (nil, false); they are simply not location
// tags, never an error.
func ParseLocationTag(tag, prefix string) (*LocationTag, bool) {
	if prefix == "" || len(tag) < len(prefix) {
		return nil, false
	}
	if !strings.EqualFold(tag[:len(prefix)], prefix) {
		return nil, false
	}

	rest := strings.TrimSpace(tag[len(prefix):])
	if rest == "" {
		return nil, false
	}

	segments := strings.Split(rest, "-")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
		if segments[i] == "" {
			return nil, false
		}
	}

	switch len(segments) {
	case 1:
		return &LocationTag{Building: DefaultBuilding, Level: DefaultLevel, Room: segments[0]}, true
	case 2:
		return &LocationTag{Building: segments[0], Level: DefaultLevel, Room: segments[1]}, true
	case 3:
		return &LocationTag{Building: segments[0], Level: segments[1], Room: segments[2]}, true
	default:
		return nil, false
	}
}

// CostGroupTag is the parsed form of a cost-group tag.
type CostGroupTag struct {
	Code   string // three-digit code, e.g. "456"
	Name   string // optional free name following the code
	Prefix string // the prefix that matched
}

// ParseCostGroupTag parses a tag like "KGR456 Flooring" against the
// configured prefixes. Prefixes are tried in declared order and the first
// match wins; the code must be exactly three digits followed by a word
// boundary.
func ParseCostGroupTag(tag string, prefixes []string) (*CostGroupTag, bool) {
	for _, prefix := range prefixes {
		if prefix == "" || len(tag) < len(prefix)+3 {
			continue
		}
		if !strings.EqualFold(tag[:len(prefix)], prefix) {
			continue
		}

		rest := tag[len(prefix):]
		code := rest[:3]
		if !isDigits(code) {
			continue
		}

		name := rest[3:]
		if name != "" && !unicode.IsSpace(rune(name[0])) {
			// "KGR4567" is not a three-digit code.
			continue
		}

		return &CostGroupTag{
			Code:   code,
			Name:   strings.TrimSpace(name),
			Prefix: prefix,
		}, true
	}
	return nil, false
}

// ParentCode returns the parent of a three-digit cost code, derived by
// truncating trailing non-zero digits (456 -> 450 -> 400), or nil for
// top-level codes.
func ParentCode(code string) *string {
	if len(code) != 3 || !isDigits(code) {
		return nil
	}
	if code[2] != '0' {
		parent := code[:2] + "0"
		return &parent
	}
	if code[1] != '0' {
		parent := code[:1] + "00"
		return &parent
	}
	return nil
}

// CodeChain returns the full ancestor chain for a code, top-down, ending
// with the code itself (e.g. "456" -> ["400", "450", "456"]).
func CodeChain(code string) []string {
	var chain []string
	for c := &code; c != nil; c = ParentCode(*c) {
		chain = append([]string{*c}, chain...)
	}
	return chain
}

// CodeDepth returns the depth of a cost code within its chain:
// x00 codes are roots (0), xy0 codes are 1, xyz codes are 2.
func CodeDepth(code string) int {
	return len(CodeChain(code)) - 1
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
