package sweep

import (
	"context"
	"fmt"

	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
)

// negotiationPurger is the engine surface the purge job consumes.
type negotiationPurger interface {
	PurgeDue(ctx context.Context) (int64, error)
}

// PurgeJob hard-deletes cancelled negotiations past their retention window.
type PurgeJob struct {
	engine negotiationPurger
	logg   *logger.Logger
}

// NewPurgeJob builds the cancelled-negotiation purge job.
func NewPurgeJob(engine negotiationPurger, logg *logger.Logger) (*PurgeJob, error) {
	if engine == nil {
		return nil, fmt.Errorf("negotiation engine required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PurgeJob{engine: engine, logg: logg}, nil
}

// Name identifies the job in logs and metrics.
func (j *PurgeJob) Name() string {
	return "negotiation_purge"
}

// Run deletes every cancelled negotiation whose purge schedule has lapsed.
func (j *PurgeJob) Run(ctx context.Context) error {
	deleted, err := j.engine.PurgeDue(ctx)
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "purged", deleted), "cancelled negotiations purged")
	}
	return nil
}
