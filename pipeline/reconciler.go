package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/classifier"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/incident"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/store"
)

// Reconciler turns classified feed messages into upserted incident rows,
// establishing parent links for complements.
type Reconciler struct {
	store *store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewReconciler(st *store.Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: st, log: log, now: time.Now}
}

// ProcessStandalone upserts the message as an independent incident. Messages
// without a description are treated as malformed: logged and skipped, never
// an error.
func (r *Reconciler) ProcessStandalone(ctx context.Context, a *gtfsrt.Alert) (Outcome, error) {
	if a.Description == "" {
		r.log.Warn().
			Str("entity_id", a.EntityID).
			Str("header", a.Header).
			Msg("alert without description, skipping")
		return Outcome{Kind: OutcomeSkipped, Reason: "empty description"}, nil
	}

	inc := r.buildIncident(a)
	inc.IsComplement = false

	inc.Cause = incident.Cause(a.Cause)
	if inc.Cause == "" {
		inc.Cause = classifier.InferCause(a.Header, a.Description)
	}
	inc.Effect = incident.Effect(a.Effect)
	if inc.Effect == "" {
		inc.Effect = classifier.InferEffect(a.Header, a.Description)
	}

	if err := r.store.Upsert(ctx, inc); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeStandalone, ID: inc.ID}, nil
}

// ProcessComplement links the message to its parent incident. A complement
// without route identifiers cannot be matched, and one whose parent cannot
// be found should still be recorded: both fall back to the standalone path.
func (r *Reconciler) ProcessComplement(ctx context.Context, a *gtfsrt.Alert) (Outcome, error) {
	routeIDs := a.RouteIDs()
	if len(routeIDs) == 0 {
		r.log.Warn().
			Str("entity_id", a.EntityID).
			Str("header", a.Header).
			Msg("complement without routes, treating as standalone")
		return r.ProcessStandalone(ctx, a)
	}

	timeStart := r.now()
	if p, ok := a.FirstPeriod(); ok && p.Start != 0 {
		timeStart = time.Unix(p.Start, 0)
	}

	candidates, err := r.store.ParentCandidates(ctx, routeIDs, timeStart)
	if err != nil {
		return Outcome{}, err
	}
	if len(candidates) == 0 {
		r.log.Info().
			Str("entity_id", a.EntityID).
			Str("header", a.Header).
			Msg("no parent found for complement, treating as standalone")
		return r.ProcessStandalone(ctx, a)
	}
	parent := candidates[0] // newest time_start wins

	inc := r.buildIncident(a)
	inc.IsComplement = true
	inc.ParentAlertID = &parent.ID
	// Complements do not carry their own cause.
	inc.Cause = parent.Cause
	inc.Effect = incident.Effect(a.Effect)
	if inc.Effect == "" {
		inc.Effect = parent.Effect
	}
	if inc.Effect == "" {
		inc.Effect = incident.EffectUnknown
	}

	if err := r.store.Upsert(ctx, inc); err != nil {
		return Outcome{}, err
	}
	if err := r.store.Touch(ctx, parent.ID); err != nil {
		return Outcome{}, err
	}

	r.log.Info().
		Str("id", inc.ID).
		Str("parent_id", parent.ID).
		Msg("complement linked to parent incident")
	return Outcome{Kind: OutcomeLinked, ID: inc.ID, ParentID: parent.ID}, nil
}

// buildIncident maps the fields common to both paths.
func (r *Reconciler) buildIncident(a *gtfsrt.Alert) *incident.Incident {
	now := r.now()

	timeStart := now
	var timeEnd *time.Time
	if p, ok := a.FirstPeriod(); ok {
		if p.Start != 0 {
			timeStart = time.Unix(p.Start, 0)
		}
		if p.End != 0 {
			t := time.Unix(p.End, 0)
			timeEnd = &t
		}
	}

	return &incident.Incident{
		ID:              incident.ComputeID(a.EntityID, a.Header, now),
		TimeStart:       timeStart,
		TimeEnd:         timeEnd,
		HeaderText:      a.Header,
		DescriptionText: a.Description,
		URL:             a.URL,
		RouteIDs:        incident.IDList(a.RouteIDs()),
		StopIDs:         incident.IDList(a.StopIDs()),
	}
}
