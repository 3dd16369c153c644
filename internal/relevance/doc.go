// Package relevance narrows raw upstream articles down to ocean-relevant items
// in three ordered stages:
//
//  1. A permissive keyword pre-filter over a fixed ocean/climate/geography
//     vocabulary.
//  2. Batched AI classification with a per-process decision cache. Rate
//     limiting truncates the stage and backfills from stage 1; any other
//     classifier failure skips the stage entirely.
//  3. A regex safety net that removes known false-positive categories
//     regardless of earlier verdicts.
package relevance
