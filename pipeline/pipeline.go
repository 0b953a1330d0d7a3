package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/classifier"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/metrics"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/store"
)

// Notifier is told after each successful pass that new incidents may be
// ready to publish. Failures are logged and never fail the pass.
type Notifier interface {
	NotifyPublisher(ctx context.Context) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context) error

func (f NotifierFunc) NotifyPublisher(ctx context.Context) error { return f(ctx) }

// RunStats summarizes one poll pass.
type RunStats struct {
	Messages   int
	Standalone int
	Linked     int
	Skipped    int
	Failed     int
}

// Pipeline runs one poll pass: fetch, decode, classify, reconcile, notify.
type Pipeline struct {
	client     *gtfsrt.Client
	feedURL    string
	reconciler *Reconciler
	notifier   Notifier
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func New(client *gtfsrt.Client, feedURL string, st *store.Store, notifier Notifier, m *metrics.Metrics, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		client:     client,
		feedURL:    feedURL,
		reconciler: NewReconciler(st, log),
		notifier:   notifier,
		metrics:    m,
		log:        log,
	}
}

// Run executes one pass. Fetch and decode failures abort the pass before
// anything is written; per-message failures are isolated and the batch
// continues.
func (p *Pipeline) Run(ctx context.Context) (RunStats, error) {
	started := time.Now()
	defer func() {
		p.metrics.PollDuration.Observe(time.Since(started).Seconds())
	}()

	data, err := p.client.Fetch(ctx, p.feedURL)
	if err != nil {
		p.metrics.PollTotal.WithLabelValues("fetch_error").Inc()
		p.log.Error().Err(err).Str("url", p.feedURL).Msg("feed fetch failed, aborting pass")
		return RunStats{}, err
	}
	p.metrics.FetchBytes.Add(float64(len(data)))

	alerts, err := gtfsrt.DecodeAlerts(data)
	if err != nil {
		p.metrics.PollTotal.WithLabelValues("decode_error").Inc()
		p.log.Error().Err(err).Msg("feed decode failed, aborting pass")
		return RunStats{}, err
	}

	stats := p.processBatch(ctx, alerts)

	if p.notifier != nil {
		if err := p.notifier.NotifyPublisher(ctx); err != nil {
			p.log.Warn().Err(err).Msg("publication trigger failed")
		}
	}

	p.metrics.PollTotal.WithLabelValues("ok").Inc()
	p.log.Info().
		Int("messages", stats.Messages).
		Int("standalone", stats.Standalone).
		Int("linked", stats.Linked).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("poll pass complete")
	return stats, nil
}

// processBatch reconciles all messages of one pass. Standalone alerts run
// first so that complements can find parents created in the same batch.
func (p *Pipeline) processBatch(ctx context.Context, alerts []gtfsrt.Alert) RunStats {
	stats := RunStats{Messages: len(alerts)}

	var standalone, complements []*gtfsrt.Alert
	for i := range alerts {
		a := &alerts[i]
		if classifier.IsComplement(a.Header, a.Description) {
			complements = append(complements, a)
		} else {
			standalone = append(standalone, a)
		}
	}

	for _, a := range standalone {
		out, err := p.reconciler.ProcessStandalone(ctx, a)
		p.record(&stats, a, out, err)
	}
	for _, a := range complements {
		out, err := p.reconciler.ProcessComplement(ctx, a)
		p.record(&stats, a, out, err)
	}
	return stats
}

func (p *Pipeline) record(stats *RunStats, a *gtfsrt.Alert, out Outcome, err error) {
	if err != nil {
		stats.Failed++
		p.metrics.MessagesTotal.WithLabelValues("failed").Inc()
		p.log.Error().Err(err).
			Str("entity_id", a.EntityID).
			Str("header", a.Header).
			Msg("message not persisted")
		return
	}
	p.metrics.MessagesTotal.WithLabelValues(string(out.Kind)).Inc()
	switch out.Kind {
	case OutcomeStandalone:
		stats.Standalone++
	case OutcomeLinked:
		stats.Linked++
	case OutcomeSkipped:
		stats.Skipped++
	}
}
