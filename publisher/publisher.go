package publisher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/metrics"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/store"
)

// Publisher claims unposted incidents from the store, renders them into
// summaries and posts them. On posting failure the claim is released so the
// incidents are retried on a later pass.
type Publisher struct {
	store    *store.Store
	poster   Poster
	composer Composer
	metrics  *metrics.Metrics
	log      zerolog.Logger

	// claims older than this are treated as abandoned by a dead poster
	stuckAfter time.Duration
	batchLimit int

	wake chan struct{}
}

type Options struct {
	Hashtag    string
	StuckAfter time.Duration // default 5m
	BatchLimit int           // default 20
}

func New(st *store.Store, poster Poster, m *metrics.Metrics, log zerolog.Logger, opts Options) *Publisher {
	if opts.StuckAfter <= 0 {
		opts.StuckAfter = 5 * time.Minute
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 20
	}
	return &Publisher{
		store:      st,
		poster:     poster,
		composer:   Composer{Hashtag: opts.Hashtag},
		metrics:    m,
		log:        log,
		stuckAfter: opts.StuckAfter,
		batchLimit: opts.BatchLimit,
		wake:       make(chan struct{}, 1),
	}
}

// PublishPending runs one publication pass over today's unposted incidents.
func (p *Publisher) PublishPending(ctx context.Context) error {
	recovered, err := p.store.ReleaseStuck(ctx, p.stuckAfter)
	if err != nil {
		return err
	}
	if recovered > 0 {
		p.metrics.ReleasedStuck.Add(float64(recovered))
		p.log.Warn().Int64("count", recovered).Msg("recovered stuck publication claims")
	}

	now := time.Now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	claimed, err := p.store.ClaimUnposted(ctx, since, p.batchLimit)
	if err != nil {
		return err
	}
	if len(claimed) == 0 {
		p.updateUnpostedGauge(ctx, since)
		return nil
	}

	for _, g := range GroupByHeader(claimed) {
		ids := make([]string, len(g.Incidents))
		for i, inc := range g.Incidents {
			ids[i] = inc.ID
		}

		text := p.composer.Compose(g)
		if err := p.poster.Post(ctx, text); err != nil {
			p.metrics.PostsTotal.WithLabelValues("error").Inc()
			p.log.Error().Err(err).Str("header", g.Header).Msg("post failed, releasing claim")
			if relErr := p.store.Release(ctx, ids); relErr != nil {
				p.log.Error().Err(relErr).Strs("ids", ids).Msg("release failed")
			}
			continue
		}

		p.metrics.PostsTotal.WithLabelValues("ok").Inc()
		if err := p.store.MarkPosted(ctx, ids); err != nil {
			p.log.Error().Err(err).Strs("ids", ids).Msg("mark posted failed")
			continue
		}
		p.log.Info().Str("header", g.Header).Int("incidents", len(ids)).Msg("summary posted")
	}

	p.updateUnpostedGauge(ctx, since)
	return nil
}

func (p *Publisher) updateUnpostedGauge(ctx context.Context, since time.Time) {
	if n, err := p.store.CountUnposted(ctx, since); err == nil {
		p.metrics.UnpostedGauge.Set(float64(n))
	}
}

// NotifyPublisher wakes the Run loop. It never blocks and never fails, so
// the ingestion pass can fire-and-forget it.
func (p *Publisher) NotifyPublisher(_ context.Context) error {
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run blocks, publishing whenever notified, until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			if err := p.PublishPending(ctx); err != nil {
				p.log.Error().Err(err).Msg("publication pass failed")
			}
		}
	}
}
