package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/threads-api/internal/config"
	"github.com/JakeFAU/threads-api/internal/threads"
)

func TestServer_GetUserProfileByName(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{profile: json.RawMessage(`{"id":"1","name":"alice"}`)}
	server := newTestServer(fetcher)

	rec := serve(server, http.MethodGet, "/api/users?userName=alice")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"id":"1","name":"alice"}`, rec.Body.String())
	require.Equal(t, []threads.ProfileQuery{{UserName: "alice"}}, fetcher.profileCalls())
}

func TestServer_GetUserProfileByName_MissingOrEmpty(t *testing.T) {
	t.Parallel()

	for _, target := range []string{"/api/users", "/api/users?userName=", "/api/users?other=alice"} {
		t.Run(target, func(t *testing.T) {
			t.Parallel()

			fetcher := &fakeFetcher{}
			rec := serve(newTestServer(fetcher), http.MethodGet, target)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "Missing userName", rec.Body.String())
			require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
			require.Empty(t, fetcher.profileCalls())
		})
	}
}

func TestServer_GetUserProfileByID(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{profile: json.RawMessage(`{"id":"42"}`)}
	rec := serve(newTestServer(fetcher), http.MethodGet, "/api/users/42")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":"42"}`, rec.Body.String())
	require.Equal(t, []threads.ProfileQuery{{UserID: "42"}}, fetcher.profileCalls())
}

func TestServer_GetUserProfileByID_FetchFails(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	fetcher := &fakeFetcher{err: &threads.UpstreamError{Operation: threads.OpUserProfile, StatusCode: 502}}
	server := NewServer(fetcher, config.Config{}, zap.New(core))

	rec := serve(server, http.MethodGet, "/api/users/42")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal Server Error", rec.Body.String())
	require.NotContains(t, rec.Body.String(), "502")
	require.Equal(t, 1, logs.FilterMessage("fetch failed").Len())
}

func TestServer_GetThreadReplies(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{replies: json.RawMessage(`{"replies":[]}`)}
	rec := serve(newTestServer(fetcher), http.MethodGet, "/api/threads/C8abc/replies")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"replies":[]}`, rec.Body.String())
	require.Equal(t, []string{"C8abc"}, fetcher.replyCalls())
}

func TestServer_GetThreadReplies_EmptyID(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	rec := serve(newTestServer(fetcher), http.MethodGet, "/api/threads//replies")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Missing threadId", rec.Body.String())
	require.Empty(t, fetcher.replyCalls())
}

func TestServer_GetThreadReplies_FetchFails(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("boom")}
	rec := serve(newTestServer(fetcher), http.MethodGet, "/api/threads/99/replies")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal Server Error", rec.Body.String())
	require.Equal(t, []string{"99"}, fetcher.replyCalls())
}

func TestServer_GetUserProfileThreads(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{threads: json.RawMessage(`{"threads":[{"id":"1"}]}`)}
	rec := serve(newTestServer(fetcher), http.MethodGet, "/api/users/42/threads")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"threads":[{"id":"1"}]}`, rec.Body.String())
	require.Equal(t, []string{"42"}, fetcher.threadCalls())
}

func TestServer_GetUserProfileThreads_EmptyID(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	rec := serve(newTestServer(fetcher), http.MethodGet, "/api/users//threads")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Missing userId", rec.Body.String())
	require.Empty(t, fetcher.threadCalls())
}

func TestServer_GetUserProfileThreads_FetchFails(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: context.DeadlineExceeded}
	rec := serve(newTestServer(fetcher), http.MethodGet, "/api/users/42/threads")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal Server Error", rec.Body.String())
}

func TestServer_NotFound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/api/users"},
		{http.MethodDelete, "/api/users/42"},
		{http.MethodPut, "/api/threads/1/replies"},
		{http.MethodGet, "/api/unknown"},
		{http.MethodGet, "/"},
		{http.MethodGet, "/api/users/42/threads/extra"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			t.Parallel()

			fetcher := &fakeFetcher{}
			rec := serve(newTestServer(fetcher), tc.method, tc.target)

			require.Equal(t, http.StatusNotFound, rec.Code)
			require.Empty(t, fetcher.profileCalls())
			require.Empty(t, fetcher.threadCalls())
			require.Empty(t, fetcher.replyCalls())
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := serve(newTestServer(&fakeFetcher{}), http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_MetricsRoute(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}
	server := NewServer(&fakeFetcher{}, cfg, zap.NewNop())
	serve(server, http.MethodGet, "/healthz")

	rec := serve(server, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")

	disabled := serve(newTestServer(&fakeFetcher{}), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusNotFound, disabled.Code)
}

func TestServer_RequestID(t *testing.T) {
	t.Parallel()

	rec := serve(newTestServer(&fakeFetcher{}), http.MethodGet, "/api/users")

	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	require.NoError(t, err)
}

func TestServer_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	server := NewServer(&fakeFetcher{panics: true}, config.Config{}, zap.New(core))

	rec := serve(server, http.MethodGet, "/api/users/42")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal Server Error", rec.Body.String())
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestServer_RepeatedRequestsAreIndependent(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{profile: json.RawMessage(`{"id":"42"}`)}
	server := newTestServer(fetcher)

	first := serve(server, http.MethodGet, "/api/users/42")
	second := serve(server, http.MethodGet, "/api/users/42")

	require.Equal(t, first.Code, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Len(t, fetcher.profileCalls(), 2)
	require.NotEqual(t, first.Header().Get("X-Request-ID"), second.Header().Get("X-Request-ID"))
}

func TestServer_AccessLog(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	server := NewServer(&fakeFetcher{}, config.Config{}, zap.New(core))

	serve(server, http.MethodGet, "/api/users")

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/api/users", fields["path"])
	require.EqualValues(t, http.StatusBadRequest, fields["status"])
}

func newTestServer(fetcher Fetcher) *Server {
	return NewServer(fetcher, config.Config{}, zap.NewNop())
}

func serve(server *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

type fakeFetcher struct {
	mu       sync.Mutex
	profile  json.RawMessage
	replies  json.RawMessage
	threads  json.RawMessage
	err      error
	panics   bool
	profiles []threads.ProfileQuery
	replyIDs []string
	userIDs  []string
}

func (f *fakeFetcher) UserProfile(_ context.Context, q threads.ProfileQuery) (json.RawMessage, error) {
	f.mu.Lock()
	f.profiles = append(f.profiles, q)
	f.mu.Unlock()
	if f.panics {
		panic("fetcher exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeFetcher) ThreadReplies(_ context.Context, threadID string) (json.RawMessage, error) {
	f.mu.Lock()
	f.replyIDs = append(f.replyIDs, threadID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.replies, nil
}

func (f *fakeFetcher) UserProfileThreads(_ context.Context, userID string) (json.RawMessage, error) {
	f.mu.Lock()
	f.userIDs = append(f.userIDs, userID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.threads, nil
}

func (f *fakeFetcher) profileCalls() []threads.ProfileQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]threads.ProfileQuery(nil), f.profiles...)
}

func (f *fakeFetcher) replyCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replyIDs...)
}

func (f *fakeFetcher) threadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.userIDs...)
}
