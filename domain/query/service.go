package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sitedex/sitedex/domain/hierarchy"
	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/people"
	"github.com/sitedex/sitedex/domain/unified"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/auth"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Service resolves sub-filters and the caller's access context before
// handing the composed query to the repository.
type Service struct {
	repo      *Repository
	hierarchy *hierarchy.Repository
	people    *people.Repository
	cfg       *config.Config
	log       *slog.Logger
}

// NewService creates a new query service
func NewService(repo *Repository, hierarchyRepo *hierarchy.Repository, peopleRepo *people.Repository, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		hierarchy: hierarchyRepo,
		people:    peopleRepo,
		cfg:       cfg,
		log:       log.With(logger.Scope("query.service")),
	}
}

// Query returns one page of unified items for the caller.
func (s *Service) Query(ctx context.Context, caller *auth.Caller, params Params) (*Page, error) {
	params.Normalize()

	f, empty, err := s.resolve(ctx, caller, params)
	if err != nil {
		return nil, err
	}
	page := &Page{Items: []unified.Item{}, Limit: params.Limit, Offset: params.Offset}
	if empty {
		return page, nil
	}

	rows, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	page.Items = rows
	return page, nil
}

// Count returns the filtered total plus metadata for the caller.
func (s *Service) Count(ctx context.Context, caller *auth.Caller, params Params) (*Counts, error) {
	f, empty, err := s.resolve(ctx, caller, params)
	if err != nil {
		return nil, err
	}
	if empty {
		return &Counts{ByType: map[items.ItemType]int{}}, nil
	}
	return s.repo.CountWithMetadata(ctx, f)
}

// resolve turns search-style sub-filters into id/email sets. A sub-filter
// that matches nothing short-circuits the whole query to an empty result;
// dropping it would silently widen the result set instead.
func (s *Service) resolve(ctx context.Context, caller *auth.Caller, params Params) (*resolved, bool, error) {
	f := &resolved{Params: params}

	if params.Location != "" {
		ids, err := s.hierarchy.SearchLocationIDs(ctx, params.Location)
		if err != nil {
			return nil, false, err
		}
		if len(ids) == 0 {
			return nil, true, nil
		}
		f.LocationIDs = ids
	}

	if params.CostCodeFrom != "" || params.CostCodeTo != "" {
		from, to := params.CostCodeFrom, params.CostCodeTo
		if from == "" {
			from = "000"
		}
		if to == "" {
			to = "999"
		}
		ids, err := s.hierarchy.CostGroupsByCodeRange(ctx, from, to)
		if err != nil {
			return nil, false, err
		}
		if len(ids) == 0 {
			return nil, true, nil
		}
		f.CostGroupIDs = ids
	}

	if params.Person != "" {
		emails, err := s.people.SearchPersonEmails(ctx, params.Person)
		if err != nil {
			return nil, false, err
		}
		if len(emails) == 0 {
			return nil, true, nil
		}
		f.InvolvedEmails = emails
	}

	if caller != nil && !caller.IsAdmin {
		access := make([]string, 0, len(s.cfg.Auth.PublicEmails)+1)
		access = append(access, strings.ToLower(caller.Email))
		for _, e := range s.cfg.Auth.PublicEmails {
			access = append(access, strings.ToLower(e))
		}
		f.AccessEmails = access
	}

	return f, false, nil
}
