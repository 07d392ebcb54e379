// Package main hosts the threadsapi service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server routes four read-only GET endpoints under /api plus /healthz and the
//     Prometheus scrape path. Each handler checks its single identifier (400 with a fixed text body when it is
//     absent or empty), makes one call to the Threads client, and relays the JSON result (500 on any failure).
//     Every other path or method is a 404.
//   - Threads client: internal/threads resolves user names by scraping the public profile page, obtains the LSD
//     token (configured or scraped from the landing page), and posts persisted GraphQL queries through Colly.
//     When a profile page is rendered client-side only, the page load is promoted to the headless renderer.
//   - Headless renderer: internal/render drives Chrome through chromedp behind a semaphore sized by
//     headless.max_parallel. It is disabled by default.
//   - Configuration & plumbing: Viper populates config from defaults, an optional file and THREADSAPI_* env vars
//     (PORT overrides the port; a .env file is loaded when present); zap provides structured logging; Prometheus
//     counters/histograms cover HTTP requests and upstream operations.
//
// Operational notes:
//   - Stateless: nothing is cached or persisted between requests, so the service scales out freely.
//   - Shutdown: SIGINT/SIGTERM stops accepting connections and drains in-flight requests within
//     server.shutdown_timeout_seconds.
//   - Upstream budget: each collaborator call is bounded by threads.timeout_seconds; a caller that disconnects
//     cancels its upstream work.
//
// Quick checklist:
//   - Run locally: go run ./cmd/threadsapi (optionally --config config.yaml).
//   - Override with env: PORT, THREADSAPI_THREADS_LSD_TOKEN, THREADSAPI_HEADLESS_ENABLED=true,
//     THREADSAPI_LOGGING_DEVELOPMENT=true.
package main
