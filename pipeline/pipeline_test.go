package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/incident"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/metrics"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("sqlite", ":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func translated(text string) *gtfsrtpb.TranslatedString {
	return &gtfsrtpb.TranslatedString{
		Translation: []*gtfsrtpb.TranslatedString_Translation{
			{Text: proto.String(text)},
		},
	}
}

type alertDef struct {
	id          string
	header      string
	description string
	start, end  uint64
	routes      []string
	stops       []string
	cause       *gtfsrtpb.Alert_Cause
	effect      *gtfsrtpb.Alert_Effect
}

func buildFeed(t *testing.T, defs ...alertDef) []byte {
	t.Helper()

	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
	}
	for _, s := range defs {
		a := &gtfsrtpb.Alert{
			Cause:  s.cause,
			Effect: s.effect,
		}
		if s.header != "" {
			a.HeaderText = translated(s.header)
		}
		if s.description != "" {
			a.DescriptionText = translated(s.description)
		}
		if s.start != 0 || s.end != 0 {
			tr := &gtfsrtpb.TimeRange{}
			if s.start != 0 {
				tr.Start = proto.Uint64(s.start)
			}
			if s.end != 0 {
				tr.End = proto.Uint64(s.end)
			}
			a.ActivePeriod = []*gtfsrtpb.TimeRange{tr}
		}
		for _, r := range s.routes {
			a.InformedEntity = append(a.InformedEntity, &gtfsrtpb.EntitySelector{RouteId: proto.String(r)})
		}
		for _, st := range s.stops {
			a.InformedEntity = append(a.InformedEntity, &gtfsrtpb.EntitySelector{StopId: proto.String(st)})
		}
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{
			Id:    proto.String(s.id),
			Alert: a,
		})
	}
	data, err := proto.Marshal(fm)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	return data
}

func serveFeed(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPipeline(t *testing.T, st *store.Store, url string, n Notifier) *Pipeline {
	t.Helper()
	return New(gtfsrt.NewClient(5*time.Second), url, st, n, metrics.New(), zerolog.Nop())
}

const (
	tStart = uint64(1700000000)
	tLater = uint64(1700003600)
)

func TestRun_StandaloneAlert(t *testing.T) {
	st := newTestStore(t)
	data := buildFeed(t, alertDef{
		id:          "42",
		header:      "Travaux ligne T1",
		description: "Travaux sur la voie jusqu'à 18h",
		start:       tStart,
		routes:      []string{"T1"},
	})
	srv := serveFeed(t, data)

	p := newPipeline(t, st, srv.URL, nil)
	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Standalone != 1 || stats.Messages != 1 {
		t.Errorf("stats = %+v", stats)
	}

	wantID := incident.ComputeID("42", "Travaux ligne T1", time.Now())
	got, err := st.Get(context.Background(), wantID)
	if err != nil {
		t.Fatalf("incident %s not stored: %v", wantID, err)
	}
	if got.Cause != incident.CauseConstruction {
		t.Errorf("cause = %v, want CONSTRUCTION (inferred)", got.Cause)
	}
	if got.Effect != incident.EffectUnknown {
		t.Errorf("effect = %v, want UNKNOWN_EFFECT", got.Effect)
	}
	if got.IsComplement {
		t.Error("standalone alert flagged as complement")
	}
	if !got.TimeStart.Equal(time.Unix(int64(tStart), 0)) {
		t.Errorf("timeStart = %v", got.TimeStart)
	}
	if got.TimeEnd != nil {
		t.Errorf("timeEnd should be nil, got %v", got.TimeEnd)
	}
	if got.RouteIDs.String() != "T1" {
		t.Errorf("routeIds = %q", got.RouteIDs)
	}
}

func TestRun_FeedCauseWins(t *testing.T) {
	st := newTestStore(t)
	data := buildFeed(t, alertDef{
		id:          "42",
		header:      "Travaux ligne T1",
		description: "Travaux sur la voie",
		start:       tStart,
		routes:      []string{"T1"},
		cause:       gtfsrtpb.Alert_STRIKE.Enum(),
		effect:      gtfsrtpb.Alert_DETOUR.Enum(),
	})
	srv := serveFeed(t, data)

	if _, err := newPipeline(t, st, srv.URL, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := st.Get(context.Background(), incident.ComputeID("42", "Travaux ligne T1", time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	// "Travaux" would infer CONSTRUCTION; the feed's explicit value wins.
	if got.Cause != incident.CauseStrike || got.Effect != incident.EffectDetour {
		t.Errorf("cause/effect = %v/%v, want STRIKE/DETOUR", got.Cause, got.Effect)
	}
}

func TestRun_Idempotent(t *testing.T) {
	st := newTestStore(t)
	data := buildFeed(t,
		alertDef{id: "1", header: "Travaux T1", description: "Travaux", start: tStart, routes: []string{"T1"}},
		alertDef{id: "2", header: "Accident T2", description: "Collision", start: tStart, routes: []string{"T2"}},
	)
	srv := serveFeed(t, data)
	p := newPipeline(t, st, srv.URL, nil)

	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	_, total, err := st.List(context.Background(), store.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("re-ingestion duplicated rows: %d", total)
	}
}

func TestRun_ComplementLinksWithinSameBatch(t *testing.T) {
	st := newTestStore(t)
	// The complement precedes its parent in feed order; the standalone-first
	// phase ordering must still let it link.
	data := buildFeed(t,
		alertDef{
			id:          "90",
			header:      "Fin de travaux T1",
			description: "Reprise normale",
			start:       tLater,
			routes:      []string{"T1"},
		},
		alertDef{
			id:          "42",
			header:      "Travaux ligne T1",
			description: "Travaux sur la voie jusqu'à 18h",
			start:       tStart,
			routes:      []string{"T1"},
		},
	)
	srv := serveFeed(t, data)

	stats, err := newPipeline(t, st, srv.URL, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Standalone != 1 || stats.Linked != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	parentID := incident.ComputeID("42", "Travaux ligne T1", time.Now())
	childID := incident.ComputeID("90", "Fin de travaux T1", time.Now())

	child, err := st.Get(context.Background(), childID)
	if err != nil {
		t.Fatal(err)
	}
	if !child.IsComplement {
		t.Error("complement not flagged")
	}
	if child.ParentAlertID == nil || *child.ParentAlertID != parentID {
		t.Errorf("parentAlertId = %v, want %s", child.ParentAlertID, parentID)
	}
	// Cause is inherited from the parent, not inferred from "Fin de travaux".
	if child.Cause != incident.CauseConstruction {
		t.Errorf("cause = %v, want inherited CONSTRUCTION", child.Cause)
	}

	parent, err := st.Get(context.Background(), parentID)
	if err != nil {
		t.Fatal(err)
	}
	if parent.IsComplement {
		t.Error("parent must stay standalone")
	}
	if !parent.UpdatedAt.After(parent.CreatedAt) {
		t.Error("parent updated_at should be touched by the complement")
	}
}

func TestRun_ComplementPicksNewestParent(t *testing.T) {
	st := newTestStore(t)
	data := buildFeed(t,
		alertDef{id: "1", header: "Travaux T1 secteur nord", description: "Travaux", start: tStart, routes: []string{"T1"}},
		alertDef{id: "2", header: "Travaux T1 secteur sud", description: "Travaux", start: tLater, routes: []string{"T1"}},
		alertDef{id: "9", header: "Reprise T1", description: "Reprise normale", start: tLater + 600, routes: []string{"T1"}},
	)
	srv := serveFeed(t, data)

	if _, err := newPipeline(t, st, srv.URL, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	child, err := st.Get(context.Background(), incident.ComputeID("9", "Reprise T1", time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	wantParent := incident.ComputeID("2", "Travaux T1 secteur sud", time.Now())
	if child.ParentAlertID == nil || *child.ParentAlertID != wantParent {
		t.Errorf("tie-break picked %v, want the newer parent %s", child.ParentAlertID, wantParent)
	}
}

func TestRun_ComplementWithoutRoutes_FallsBackToStandalone(t *testing.T) {
	st := newTestStore(t)
	data := buildFeed(t, alertDef{
		id:          "9",
		header:      "Reprise du trafic",
		description: "Reprise normale sur le réseau",
		start:       tStart,
	})
	srv := serveFeed(t, data)

	stats, err := newPipeline(t, st, srv.URL, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Standalone != 1 || stats.Linked != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	got, err := st.Get(context.Background(), incident.ComputeID("9", "Reprise du trafic", time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if got.IsComplement || got.ParentAlertID != nil {
		t.Errorf("routeless complement must become standalone: %+v", got)
	}
}

func TestRun_ComplementWithoutParent_FallsBackToStandalone(t *testing.T) {
	st := newTestStore(t)
	data := buildFeed(t, alertDef{
		id:          "9",
		header:      "Reprise T7",
		description: "Reprise normale",
		start:       tStart,
		routes:      []string{"T7"},
	})
	srv := serveFeed(t, data)

	stats, err := newPipeline(t, st, srv.URL, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Standalone != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	got, err := st.Get(context.Background(), incident.ComputeID("9", "Reprise T7", time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if got.IsComplement || got.ParentAlertID != nil {
		t.Errorf("orphan complement must become standalone: %+v", got)
	}
}

func TestRun_EmptyDescriptionSkipped(t *testing.T) {
	st := newTestStore(t)
	data := buildFeed(t,
		alertDef{id: "1", header: "Travaux T1", start: tStart, routes: []string{"T1"}}, // no description
		alertDef{id: "2", header: "Accident T2", description: "Collision", start: tStart, routes: []string{"T2"}},
	)
	srv := serveFeed(t, data)

	stats, err := newPipeline(t, st, srv.URL, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 || stats.Standalone != 1 {
		t.Errorf("stats = %+v", stats)
	}

	_, total, err := st.List(context.Background(), store.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("skipped message was persisted: %d rows", total)
	}
}

func TestRun_FetchFailureAbortsPass(t *testing.T) {
	st := newTestStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := newPipeline(t, st, srv.URL, nil).Run(context.Background())
	var fe *gtfsrt.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want *gtfsrt.FetchError, got %v", err)
	}

	_, total, _ := st.List(context.Background(), store.Filter{})
	if total != 0 {
		t.Errorf("aborted pass wrote %d rows", total)
	}
}

func TestRun_DecodeFailureAbortsPass(t *testing.T) {
	st := newTestStore(t)
	srv := serveFeed(t, []byte{0xff, 0x00, 0xde, 0xad})

	_, err := newPipeline(t, st, srv.URL, nil).Run(context.Background())
	var de *gtfsrt.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("want *gtfsrt.DecodeError, got %v", err)
	}
}

func TestRun_NotifierFailureDoesNotFailPass(t *testing.T) {
	st := newTestStore(t)
	data := buildFeed(t, alertDef{id: "1", header: "Travaux T1", description: "Travaux", start: tStart, routes: []string{"T1"}})
	srv := serveFeed(t, data)

	called := false
	n := NotifierFunc(func(ctx context.Context) error {
		called = true
		return errors.New("publisher down")
	})

	if _, err := newPipeline(t, st, srv.URL, n).Run(context.Background()); err != nil {
		t.Fatalf("notifier failure must not fail the pass: %v", err)
	}
	if !called {
		t.Error("notifier was not triggered")
	}
}
