// Package api hosts the HTTP router, middleware, and read-only handlers that
// relay Threads data. Routes:
//   - GET /api/users?userName= and GET /api/users/{userId} for profiles.
//   - GET /api/users/{userId}/threads for a user's threads.
//   - GET /api/threads/{threadId}/replies for a thread's replies.
//   - GET /healthz for liveness, and the metrics path when enabled.
//
// A missing identifier yields 400 with a fixed text body, a failed fetch
// yields 500, and anything unrouted yields 404.
package api
