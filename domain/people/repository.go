package people

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
	"github.com/sitedex/sitedex/pkg/pgutils"
)

// Repository handles database operations for persons and person links
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new people repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("people.repo")),
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, log: r.log}
}

// GetLink fetches the link for an external identity, or nil when none exists.
func (r *Repository) GetLink(ctx context.Context, source items.Source, externalID string) (*PersonLink, error) {
	link := &PersonLink{}
	err := r.db.NewSelect().
		Model(link).
		Where("pl.source = ?", source).
		Where("pl.external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return link, nil
}

// GetPersonByEmail fetches a person by primary email, case-insensitive, or
// nil when no person carries that email.
func (r *Repository) GetPersonByEmail(ctx context.Context, email string) (*UnifiedPerson, error) {
	person := &UnifiedPerson{}
	err := r.db.NewSelect().
		Model(person).
		Where("lower(p.primary_email) = ?", strings.ToLower(email)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return person, nil
}

// GetPerson fetches a person by id.
func (r *Repository) GetPerson(ctx context.Context, id uuid.UUID) (*UnifiedPerson, error) {
	person := &UnifiedPerson{}
	err := r.db.NewSelect().Model(person).Where("p.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("person", id.String())
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return person, nil
}

// CreatePerson inserts a new unified person. A concurrent insert for the same
// email loses the partial unique index race; callers retry the email lookup
// on conflict.
func (r *Repository) CreatePerson(ctx context.Context, person *UnifiedPerson) (*UnifiedPerson, error) {
	_, err := r.db.NewInsert().Model(person).Returning("*").Exec(ctx)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return nil, apperror.ErrConflict.WithInternal(err)
		}
		r.log.Error("failed to create person", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return person, nil
}

// CreateLink inserts a person link. Duplicate external identities surface as
// a conflict so callers can treat the identity as already resolved.
func (r *Repository) CreateLink(ctx context.Context, link *PersonLink) (*PersonLink, error) {
	_, err := r.db.NewInsert().Model(link).Returning("*").Exec(ctx)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return nil, apperror.ErrConflict.WithInternal(err)
		}
		r.log.Error("failed to create person link", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return link, nil
}

// SearchPersonEmails returns the lowered primary emails of persons matching
// the search term by name or email. The query engine intersects these with
// the index's involved-email arrays; nil means no match and must
// short-circuit the query, not drop the filter.
func (r *Repository) SearchPersonEmails(ctx context.Context, term string) ([]string, error) {
	var emails []string
	err := r.db.NewSelect().
		Model((*UnifiedPerson)(nil)).
		ColumnExpr("lower(p.primary_email)").
		Where("p.primary_email IS NOT NULL").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("p.display_name ILIKE ?", pgutils.Substring(term)).
				WhereOr("p.primary_email ILIKE ?", pgutils.Substring(term))
		}).
		Scan(ctx, &emails)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return emails, nil
}

// Autocomplete returns persons whose name or email starts with the prefix.
func (r *Repository) Autocomplete(ctx context.Context, prefix string, limit int) ([]UnifiedPerson, error) {
	var persons []UnifiedPerson
	err := r.db.NewSelect().
		Model(&persons).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("p.display_name ILIKE ?", pgutils.Prefix(prefix)).
				WhereOr("p.primary_email ILIKE ?", pgutils.Prefix(prefix))
		}).
		Order("p.display_name ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return persons, nil
}
