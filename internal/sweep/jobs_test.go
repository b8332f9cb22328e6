package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	expired   int
	expireErr error
	purged    int64
	purgeErr  error
}

func (s *stubEngine) ExpireDue(ctx context.Context, limit int) (int, error) {
	return s.expired, s.expireErr
}

func (s *stubEngine) PurgeDue(ctx context.Context) (int64, error) {
	return s.purged, s.purgeErr
}

func TestExpireJobRun(t *testing.T) {
	job, err := NewExpireJob(&stubEngine{expired: 4}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "negotiation_expire", job.Name())
	assert.NoError(t, job.Run(context.Background()))
}

func TestExpireJobSurfacesErrors(t *testing.T) {
	job, err := NewExpireJob(&stubEngine{expired: 1, expireErr: errors.New("row failed")}, testLogger())
	require.NoError(t, err)

	assert.Error(t, job.Run(context.Background()))
}

func TestPurgeJobRun(t *testing.T) {
	job, err := NewPurgeJob(&stubEngine{purged: 2}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "negotiation_purge", job.Name())
	assert.NoError(t, job.Run(context.Background()))
}

func TestPurgeJobSurfacesErrors(t *testing.T) {
	job, err := NewPurgeJob(&stubEngine{purgeErr: errors.New("delete failed")}, testLogger())
	require.NoError(t, err)

	assert.Error(t, job.Run(context.Background()))
}
