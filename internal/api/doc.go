// Package api hosts the HTTP server, middleware, and handlers. Routes:
//   - GET /api/news for the curated ocean news feed (always 200).
//   - GET /api/news/status for today's quota and snapshot metadata.
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
package api
