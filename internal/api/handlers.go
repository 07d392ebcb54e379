package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/threads-api/internal/threads"
)

const (
	msgMissingUserName = "Missing userName"
	msgMissingUserID   = "Missing userId"
	msgMissingThreadID = "Missing threadId"
	msgInternalError   = "Internal Server Error"
	msgNotFound        = "404 Not Found"
)

func (s *Server) getUserProfileByName(w http.ResponseWriter, r *http.Request) {
	userName := r.URL.Query().Get("userName")
	if userName == "" {
		writeText(w, http.StatusBadRequest, msgMissingUserName)
		return
	}
	s.relay(w, r, threads.OpUserProfile, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetcher.UserProfile(ctx, threads.ProfileQuery{UserName: userName})
	})
}

func (s *Server) getUserProfileByID(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeText(w, http.StatusBadRequest, msgMissingUserID)
		return
	}
	s.relay(w, r, threads.OpUserProfile, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetcher.UserProfile(ctx, threads.ProfileQuery{UserID: userID})
	})
}

func (s *Server) getThreadReplies(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadId")
	if threadID == "" {
		writeText(w, http.StatusBadRequest, msgMissingThreadID)
		return
	}
	s.relay(w, r, threads.OpThreadReplies, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetcher.ThreadReplies(ctx, threadID)
	})
}

func (s *Server) getUserProfileThreads(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeText(w, http.StatusBadRequest, msgMissingUserID)
		return
	}
	s.relay(w, r, threads.OpUserThreads, func(ctx context.Context) (json.RawMessage, error) {
		return s.fetcher.UserProfileThreads(ctx, userID)
	})
}

// relay runs one fetch and writes its result as JSON. Any failure collapses
// to a plain 500 so upstream details never reach the caller.
func (s *Server) relay(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	fetch func(ctx context.Context) (json.RawMessage, error),
) {
	data, err := fetch(r.Context())
	if err != nil {
		s.logger.Warn("fetch failed",
			zap.String("operation", operation),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeText(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, msgNotFound)
}
