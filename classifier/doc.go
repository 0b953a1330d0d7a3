// Package classifier decides, per raw feed message, whether it is a
// standalone incident or a complement (follow-up/resolution), and infers
// cause and effect tags from free text when the feed omits them. All
// functions are pure and deterministic; the keyword tables encode priority
// through their order.
package classifier
