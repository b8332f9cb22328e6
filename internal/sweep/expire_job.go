package sweep

import (
	"context"
	"fmt"

	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
)

const expireJobBatchSize = 500

// negotiationExpirer is the engine surface the expire job consumes.
type negotiationExpirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// ExpireJob moves past-deadline negotiations to their terminal state.
type ExpireJob struct {
	engine    negotiationExpirer
	logg      *logger.Logger
	batchSize int
}

// NewExpireJob builds the negotiation expiry job.
func NewExpireJob(engine negotiationExpirer, logg *logger.Logger) (*ExpireJob, error) {
	if engine == nil {
		return nil, fmt.Errorf("negotiation engine required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ExpireJob{engine: engine, logg: logg, batchSize: expireJobBatchSize}, nil
}

// Name identifies the job in logs and metrics.
func (j *ExpireJob) Name() string {
	return "negotiation_expire"
}

// Run expires every due negotiation. Single-row failures surface as the job
// error but do not stop the batch.
func (j *ExpireJob) Run(ctx context.Context) error {
	count, err := j.engine.ExpireDue(ctx, j.batchSize)
	if count > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", count), "negotiations expired")
	}
	return err
}
