// Package incident defines the persisted disruption record and the
// identifier conventions shared by the pipeline, store and publisher:
// content-derived dedup ids and normalized route/stop identifier lists.
package incident
