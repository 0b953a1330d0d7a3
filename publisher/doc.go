// Package publisher turns finalized incident groups into short
// human-readable summaries and posts them to a social feed through the
// narrow Poster seam. It owns the publication workflow state on incident
// rows: claim, post, mark posted or release for retry.
package publisher
