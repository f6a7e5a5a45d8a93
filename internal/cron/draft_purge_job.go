package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/logger"
)

type draftPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// NewDraftPurgeJob builds the job that removes order drafts whose rolling TTL
// has lapsed. Expired drafts are also replaced lazily on access; this job
// bounds how long abandoned sessions linger in the table.
func NewDraftPurgeJob(log *logger.Logger, drafts draftPurger) (Job, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if drafts == nil {
		return nil, fmt.Errorf("draft purger required")
	}
	return &draftPurgeJob{log: log, drafts: drafts, now: time.Now}, nil
}

type draftPurgeJob struct {
	log    *logger.Logger
	drafts draftPurger
	now    func() time.Time
}

func (j *draftPurgeJob) Name() string { return "draft-purge" }

func (j *draftPurgeJob) Run(ctx context.Context) error {
	purged, err := j.drafts.PurgeExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("purge expired drafts: %w", err)
	}
	logCtx := j.log.WithField(ctx, "purged", purged)
	j.log.Info(logCtx, "expired draft purge complete")
	return nil
}
