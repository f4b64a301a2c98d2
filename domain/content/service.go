package content

import (
	"context"
	"io"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/monitoring"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/storage"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Service drives the content state machines. Adapters push payload bytes
// over HTTP; the upload worker reconciles claimed records against the object
// store, and the processing worker verifies uploaded payloads downstream.
type Service struct {
	repo    *Repository
	storage *storage.Service
	metrics *monitoring.Metrics
	cfg     *config.Config
	log     *slog.Logger
}

// NewService creates a new content service
func NewService(repo *Repository, store *storage.Service, metrics *monitoring.Metrics, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		storage: store,
		metrics: metrics,
		cfg:     cfg,
		log:     log.With(logger.Scope("content.service")),
	}
}

// WithTx returns a service whose repository is bound to the given
// transaction.
func (s *Service) WithTx(tx bun.IDB) *Service {
	return &Service{
		repo:    s.repo.WithTx(tx),
		storage: s.storage,
		metrics: s.metrics,
		cfg:     s.cfg,
		log:     s.log,
	}
}

// RegisterFile ensures a content record exists for a file's hash. Called on
// every file upsert; re-sighting known bytes is a no-op.
func (s *Service) RegisterFile(ctx context.Context, hash *string, size int64, mimeType *string) error {
	if hash == nil || *hash == "" {
		return nil
	}
	return s.repo.Register(ctx, *hash, size, mimeType)
}

// ReleaseHash garbage-collects a hash a file reference just left behind
// (file deleted, or its content changed). The record and stored payload go
// only when no other file still references the hash.
func (s *Service) ReleaseHash(ctx context.Context, hash *string) error {
	if hash == nil || *hash == "" {
		return nil
	}

	deleted, err := s.repo.DeleteIfUnreferenced(ctx, *hash)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}

	if s.storage.Enabled() {
		if err := s.storage.Delete(ctx, *hash); err != nil {
			// The record is already gone; the sweep cannot retry this
			// object, so log loudly.
			s.log.Error("failed to delete stored payload",
				slog.String("content_hash", *hash), logger.Error(err))
		}
	}
	s.log.Debug("collected content", slog.String("content_hash", *hash))
	return nil
}

// StorePayload streams an adapter-delivered payload to the object store and
// completes the upload state machine for its hash.
func (s *Service) StorePayload(ctx context.Context, hash string, body io.Reader, size int64, contentType string) error {
	if !s.storage.Enabled() {
		if err := s.repo.MarkUploadSkipped(ctx, hash, "storage disabled"); err != nil {
			return err
		}
		s.metrics.UploadsProcessed.WithLabelValues("skipped").Inc()
		return nil
	}

	if err := s.storage.Upload(ctx, hash, body, size, storage.UploadOptions{ContentType: contentType}); err != nil {
		s.metrics.UploadsProcessed.WithLabelValues("failed").Inc()
		if markErr := s.repo.MarkUploadFailed(ctx, hash, err.Error()); markErr != nil {
			return markErr
		}
		return err
	}

	s.metrics.UploadsProcessed.WithLabelValues("uploaded").Inc()
	return s.repo.MarkUploadComplete(ctx, hash)
}

// ProcessUploadBatch claims eligible records and reconciles them against the
// object store: payloads already present complete immediately, missing ones
// fail and retry until the cap. One poll of the upload worker.
func (s *Service) ProcessUploadBatch(ctx context.Context) error {
	records, err := s.repo.DequeueUploadBatch(ctx, s.cfg.Queue.WorkerID, s.cfg.Queue.BatchSize)
	if err != nil {
		return err
	}

	for _, record := range records {
		if !s.storage.Enabled() {
			if err := s.repo.MarkUploadSkipped(ctx, record.ContentHash, "storage disabled"); err != nil {
				return err
			}
			s.metrics.UploadsProcessed.WithLabelValues("skipped").Inc()
			continue
		}

		exists, err := s.storage.Exists(ctx, record.ContentHash)
		switch {
		case err != nil:
			s.metrics.UploadsProcessed.WithLabelValues("failed").Inc()
			if markErr := s.repo.MarkUploadFailed(ctx, record.ContentHash, err.Error()); markErr != nil {
				return markErr
			}
		case exists:
			s.metrics.UploadsProcessed.WithLabelValues("uploaded").Inc()
			if err := s.repo.MarkUploadComplete(ctx, record.ContentHash); err != nil {
				return err
			}
		default:
			s.metrics.UploadsProcessed.WithLabelValues("failed").Inc()
			if err := s.repo.MarkUploadFailed(ctx, record.ContentHash, "payload not in store"); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessIndexBatch claims uploaded records awaiting processing and verifies
// their payloads are readable. One poll of the processing worker.
func (s *Service) ProcessIndexBatch(ctx context.Context) error {
	records, err := s.repo.DequeueProcessingBatch(ctx, s.cfg.Queue.WorkerID, s.cfg.Queue.BatchSize)
	if err != nil {
		return err
	}

	for _, record := range records {
		if !s.storage.Enabled() {
			if err := s.repo.MarkProcessingSkipped(ctx, record.ContentHash, "storage disabled"); err != nil {
				return err
			}
			continue
		}

		if err := s.indexPayload(ctx, record.ContentHash); err != nil {
			if markErr := s.repo.MarkProcessingFailed(ctx, record.ContentHash, err.Error()); markErr != nil {
				return markErr
			}
			continue
		}
		if err := s.repo.MarkProcessingDone(ctx, record.ContentHash); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) indexPayload(ctx context.Context, hash string) error {
	body, err := s.storage.Download(ctx, hash)
	if err != nil {
		return err
	}
	defer body.Close()

	_, err = io.Copy(io.Discard, body)
	return err
}

// SweepUnreferenced collects records whose last file reference disappeared
// outside the normal delete path. Scheduler task.
func (s *Service) SweepUnreferenced(ctx context.Context) error {
	hashes, err := s.repo.ListUnreferenced(ctx, s.cfg.Queue.BatchSize)
	if err != nil {
		return err
	}
	for _, hash := range hashes {
		h := hash
		if err := s.ReleaseHash(ctx, &h); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns record counts per status pair.
func (s *Service) Stats(ctx context.Context) ([]StatusCount, error) {
	return s.repo.Stats(ctx)
}
