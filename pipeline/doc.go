// Package pipeline orchestrates one poll pass over the disruption feed:
// fetch, decode, classify, reconcile against the store, then notify the
// publisher. The reconciler owns the parent-matching heuristics and the
// content-derived upsert semantics.
//
// Ordering invariant: within a batch every standalone alert is persisted
// before any complement is matched, so a complement can link to a parent
// first seen in the same batch.
package pipeline
