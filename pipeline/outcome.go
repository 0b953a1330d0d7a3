package pipeline

// OutcomeKind names the terminal state of one reconciled message.
type OutcomeKind string

const (
	// OutcomeStandalone: upserted as an independent incident. Complements
	// without routes or without a matching parent land here too.
	OutcomeStandalone OutcomeKind = "standalone"
	// OutcomeLinked: upserted as a complement with a parent reference.
	OutcomeLinked OutcomeKind = "linked"
	// OutcomeSkipped: nothing persisted; Reason says why.
	OutcomeSkipped OutcomeKind = "skipped"
)

// Outcome is the reconciler's per-message result. The fallback cascades
// (complement without routes, complement without parent) surface here as
// explicit states instead of being buried in control flow.
type Outcome struct {
	Kind     OutcomeKind
	ID       string // persisted incident id, empty when skipped
	ParentID string // set when Kind == OutcomeLinked
	Reason   string // set when Kind == OutcomeSkipped
}
