// Package news defines the core types shared by the news acquisition pipeline:
// the article model, the cached snapshot, the per-day fetch state, the
// collaborator interfaces consumed by the orchestrator, and the curated
// fallback dataset served when live data is unavailable.
package news
