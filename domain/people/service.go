package people

import (
	"context"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/operations"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Service implements identity resolution: every external contact resolves to
// exactly one unified person, matched by email.
type Service struct {
	repo  *Repository
	items *items.Repository
	ops   *operations.Repository
	log   *slog.Logger
}

// NewService creates a new people service
func NewService(repo *Repository, itemsRepo *items.Repository, ops *operations.Repository, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		items: itemsRepo,
		ops:   ops,
		log:   log.With(logger.Scope("people.service")),
	}
}

// WithTx returns a service whose repositories are bound to the given
// transaction.
func (s *Service) WithTx(tx bun.IDB) *Service {
	return &Service{
		repo:  s.repo.WithTx(tx),
		items: s.items.WithTx(tx),
		ops:   s.ops,
		log:   s.log,
	}
}

// LinkContact resolves one external contact. If a link already exists the
// call is a no-op ("skipped"); otherwise the contact is attached to the
// person with a matching email ("linked") or a new person is created for it
// ("created"). Links are permanent: a contact is never re-resolved when its
// fields change later.
func (s *Service) LinkContact(ctx context.Context, contact *items.Contact) (LinkOutcome, error) {
	existing, err := s.repo.GetLink(ctx, contact.Source, contact.ExternalID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return OutcomeSkipped, nil
	}

	person, outcome, err := s.resolvePerson(ctx, contact)
	if err != nil {
		return "", err
	}

	_, err = s.repo.CreateLink(ctx, &PersonLink{
		PersonID:   person.ID,
		Source:     contact.Source,
		ExternalID: contact.ExternalID,
	})
	if err != nil {
		// Lost a race with a concurrent resolution of the same identity.
		if errors.Is(err, apperror.ErrConflict) {
			return OutcomeSkipped, nil
		}
		return "", err
	}

	s.log.Debug("resolved external identity",
		slog.String("source", string(contact.Source)),
		slog.String("external_id", contact.ExternalID),
		slog.String("outcome", string(outcome)))
	return outcome, nil
}

func (s *Service) resolvePerson(ctx context.Context, contact *items.Contact) (*UnifiedPerson, LinkOutcome, error) {
	if contact.Email != nil && *contact.Email != "" {
		match, err := s.repo.GetPersonByEmail(ctx, *contact.Email)
		if err != nil {
			return nil, "", err
		}
		if match != nil {
			return match, OutcomeLinked, nil
		}
	}

	person := &UnifiedPerson{
		DisplayName:  displayName(contact),
		PrimaryEmail: contact.Email,
		IsInternal:   contact.IsInternal,
		IsCompany:    contact.IsCompany,
	}
	created, err := s.repo.CreatePerson(ctx, person)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) && contact.Email != nil {
			// Concurrent create for the same email; the winner holds it now.
			match, lookupErr := s.repo.GetPersonByEmail(ctx, *contact.Email)
			if lookupErr != nil {
				return nil, "", lookupErr
			}
			if match != nil {
				return match, OutcomeLinked, nil
			}
		}
		return nil, "", err
	}
	return created, OutcomeCreated, nil
}

func displayName(contact *items.Contact) string {
	if contact.DisplayName != nil && *contact.DisplayName != "" {
		return *contact.DisplayName
	}
	if contact.Email != nil && *contact.Email != "" {
		return *contact.Email
	}
	return contact.ExternalID
}

// RerunLinking starts a bulk re-resolution over all external contacts and
// returns the run record immediately; progress is tracked on the run. Rows
// that fail are counted and logged, never fatal to the run.
func (s *Service) RerunLinking(ctx context.Context) (*operations.Run, error) {
	contacts, err := s.items.ListContacts(ctx)
	if err != nil {
		return nil, err
	}

	run, err := s.ops.Start(ctx, operations.RunTypePersonRelink, len(contacts))
	if err != nil {
		return nil, err
	}

	go s.runBulkLinking(run, contacts)
	return run, nil
}

func (s *Service) runBulkLinking(run *operations.Run, contacts []items.Contact) {
	ctx := context.Background()
	var c operations.Counters

	for i := range contacts {
		outcome, err := s.LinkContact(ctx, &contacts[i])
		c.Processed++
		switch {
		case err != nil:
			c.Skipped++
			s.log.Warn("bulk linking row failed",
				slog.String("external_id", contacts[i].ExternalID),
				logger.Error(err))
		case outcome == OutcomeCreated:
			c.Created++
		case outcome == OutcomeLinked:
			c.Linked++
		default:
			c.Skipped++
		}

		if c.Processed%100 == 0 {
			if err := s.ops.UpdateProgress(ctx, run.ID, c); err != nil {
				s.log.Warn("failed to update run progress", logger.Error(err))
			}
		}
	}

	if err := s.ops.Complete(ctx, run.ID, c); err != nil {
		s.log.Error("failed to complete run", logger.Error(err))
		return
	}
	s.log.Info("bulk person linking finished",
		slog.Int("processed", c.Processed),
		slog.Int("created", c.Created),
		slog.Int("linked", c.Linked),
		slog.Int("skipped", c.Skipped))
}
