package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/config"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/mirror"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedEvent struct {
	kind      string
	body      string
	requestID string
	ctxErr    error
}

type fakeHandler struct {
	mu     sync.Mutex
	events []recordedEvent
	out    mirror.Outcome
	panic  bool
}

func (f *fakeHandler) HandleEvent(rc *relay_io.RuntimeContext, kind string, body []byte) mirror.Outcome {
	if f.panic {
		panic("orchestrator exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{kind: kind, body: string(body), requestID: rc.RequestID, ctxErr: rc.Ctx.Err()})
	return f.out
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var m map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func TestHandlePushReturnsOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  mirror.Outcome
	}{
		{"synced", mirror.Outcome{StatusCode: 201, Message: "Repository synced.", Kind: relay_err.KindNone}},
		{"ignored", mirror.Outcome{StatusCode: 200, Message: "No action. Event is not a push event.", Kind: relay_err.KindNotAPushEvent}},
		{"bad payload", mirror.Outcome{StatusCode: 400, Message: "Request body is not JSON.", Kind: relay_err.KindMalformedPayload}},
		{"push failed", mirror.Outcome{StatusCode: 500, Message: "Failed to push.\nPushing to refs/heads/main failed: x", Kind: relay_err.KindPushFailure}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &fakeHandler{out: tt.out}
			srv := New(h, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"repository":{"name":"x"}}`))
			req.Header.Set(shared.EventHeader, "push")
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, req)

			assert.Equal(t, tt.out.StatusCode, rr.Code)
			assert.Equal(t, tt.out.Message, decode(t, rr)["message"])

			require.Len(t, h.events, 1)
			assert.Equal(t, "push", h.events[0].kind)
			assert.Equal(t, `{"repository":{"name":"x"}}`, h.events[0].body)
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{out: mirror.Outcome{StatusCode: 200, Message: "ok"}}
	srv := New(h, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set(shared.RequestIDHeader, "delivery-42")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, "delivery-42", rr.Header().Get(shared.RequestIDHeader))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	generated := rr.Header().Get(shared.RequestIDHeader)
	assert.Len(t, generated, 36)

	require.Len(t, h.events, 2)
	assert.Equal(t, "delivery-42", h.events[0].requestID)
	assert.Equal(t, generated, h.events[1].requestID)
}

func TestHandlePushDetachedFromClient(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{out: mirror.Outcome{StatusCode: 201, Message: "Repository synced."}}
	srv := New(h, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")).WithContext(ctx)
	req.Header.Set(shared.EventHeader, "push")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	require.Len(t, h.events, 1)
	assert.NoError(t, h.events[0].ctxErr)
}

func TestHandlePushTooLarge(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	srv := New(h, zap.NewNop())

	body := strings.NewReader(strings.Repeat("a", shared.MaxPayloadBytes+1))
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(shared.EventHeader, "push")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Request body too large.", decode(t, rr)["message"])
	assert.Empty(t, h.events)
}

func TestPanicRecovered(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	srv := New(&fakeHandler{panic: true}, zap.New(core))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal server error.", decode(t, rr)["message"])
	assert.Equal(t, 1, logs.FilterMessage("Panic while handling request").Len())
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	srv := New(&fakeHandler{}, zap.NewNop())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/", http.StatusMethodNotAllowed},
		{http.MethodPost, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := New(&fakeHandler{}, zap.NewNop())
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	m := decode(t, rr)
	assert.Equal(t, "ok", m["status"])
	assert.Equal(t, shared.Version, m["version"])
}

func TestListenAndServeWithOrchestrator(t *testing.T) {
	t.Parallel()

	orch := mirror.New(config.Static(config.SyncConfig{TargetBaseURL: "https://gitlab.example.com"}), nil)
	srv := New(orch, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0", ready) }()

	addr := <-ready
	require.NotNil(t, addr)

	req, err := http.NewRequest(http.MethodPost, "http://"+addr.String()+"/", strings.NewReader("{}"))
	require.NoError(t, err)
	req.Header.Set(shared.EventHeader, "issues")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var m map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, "No action. Event is not a push event.", m["message"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
