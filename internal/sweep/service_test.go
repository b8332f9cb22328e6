package sweep

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLock struct {
	locked   bool
	acquires int
	releases int
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) {
	l.acquires++
	return !l.locked, nil
}

func (l *stubLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

type recordingJob struct {
	name string
	runs int
	err  error
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestRunCycleExecutesJobsInOrder(t *testing.T) {
	first := &recordingJob{name: "first"}
	second := &recordingJob{name: "second", err: errors.New("boom")}
	third := &recordingJob{name: "third"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second, third),
		Lock:     &stubLock{},
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, first.runs)
	assert.Equal(t, 1, second.runs, "a failing job must not stop the cycle")
	assert.Equal(t, 1, third.runs)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &recordingJob{name: "only"}
	lock := &stubLock{locked: true}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases, "lock is not released when it was never acquired")
}

func TestRunCycleReleasesLock(t *testing.T) {
	lock := &stubLock{}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(&recordingJob{name: "noop"}),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, lock.acquires)
	assert.Equal(t, 1, lock.releases)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	assert.Error(t, err)
}
