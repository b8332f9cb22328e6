package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrigoferraz/autovendas-backend/pkg/guard"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// blockingHandler holds requests open until released so a second identical
// request arrives while the first is still in flight.
type blockingHandler struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingHandler() *blockingHandler {
	return &blockingHandler{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (h *blockingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.entered <- struct{}{}
	<-h.release
	w.WriteHeader(http.StatusCreated)
}

func TestDuplicateGuardBlocksConcurrentRepeat(t *testing.T) {
	g := guard.New(30 * time.Second)
	handler := newBlockingHandler()
	wrapped := DuplicateGuard(g, GuardCritical, testLogger())(handler)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/negotiations", strings.NewReader(`{"vehicleId":"v1"}`))
		return req.WithContext(WithUserID(req.Context(), "user-1"))
	}

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		wrapped.ServeHTTP(first, newReq())
	}()
	<-handler.entered

	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, newReq())

	require.Equal(t, http.StatusConflict, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "DUPLICATE_REQUEST")

	close(handler.release)
	wg.Wait()
	assert.Equal(t, http.StatusCreated, first.Code)
}

func TestDuplicateGuardReleasesOnCompletion(t *testing.T) {
	g := guard.New(30 * time.Second)
	wrapped := DuplicateGuard(g, GuardPerUser, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/negotiations/n1/messages", nil)
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "sequential repeat %d should pass", i)
	}
	assert.Zero(t, g.Len())
}

func TestDuplicateGuardDistinguishesCallers(t *testing.T) {
	g := guard.New(30 * time.Second)
	handler := newBlockingHandler()
	wrapped := DuplicateGuard(g, GuardPerUser, testLogger())(handler)

	reqFor := func(userID string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/negotiations/n1/respond", nil)
		return req.WithContext(WithUserID(req.Context(), userID))
	}

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		wrapped.ServeHTTP(first, reqFor("seller-1"))
	}()
	<-handler.entered

	second := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		wrapped.ServeHTTP(second, reqFor("seller-2"))
	}()
	<-handler.entered

	close(handler.release)
	wg.Wait()
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
}

func TestDuplicateGuardCriticalSeparatesPayloads(t *testing.T) {
	g := guard.New(30 * time.Second)
	handler := newBlockingHandler()
	wrapped := DuplicateGuard(g, GuardCritical, testLogger())(handler)

	reqFor := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/negotiations", strings.NewReader(body))
		return req.WithContext(WithUserID(req.Context(), "user-1"))
	}

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		wrapped.ServeHTTP(first, reqFor(`{"offeredPrice":"50000"}`))
	}()
	<-handler.entered

	second := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		wrapped.ServeHTTP(second, reqFor(`{"offeredPrice":"51000"}`))
	}()
	<-handler.entered

	close(handler.release)
	wg.Wait()
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
}

func TestDuplicateGuardStaleEntryIsReclaimed(t *testing.T) {
	g := guard.New(50 * time.Millisecond)
	handler := newBlockingHandler()
	wrapped := DuplicateGuard(g, GuardPerUser, testLogger())(handler)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/negotiations", nil)
		return req.WithContext(WithUserID(req.Context(), "user-1"))
	}

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		wrapped.ServeHTTP(first, newReq())
	}()
	<-handler.entered

	time.Sleep(80 * time.Millisecond)

	second := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		wrapped.ServeHTTP(second, newReq())
	}()
	<-handler.entered

	close(handler.release)
	wg.Wait()
	assert.Equal(t, http.StatusCreated, second.Code)
}
