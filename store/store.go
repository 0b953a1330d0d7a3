package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/incident"
)

// Store is an explicitly constructed handle over the incidents table. It is
// injected into the pipeline, publisher and server; there is no package
// global.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the database named by driver ("postgres" or "sqlite"),
// runs migrations and returns the handle. Callers own the lifecycle and must
// Close it.
func Open(driver, dsn string, log zerolog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&incident.Incident{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Info().Str("driver", driver).Msg("database connected")
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// incidentUpdateColumns are the mutable fields refreshed on every poll.
// Workflow state (is_posted, is_processing, in_process_since) and created_at
// are deliberately left alone.
var incidentUpdateColumns = []string{
	"time_start", "time_end", "cause", "effect",
	"header_text", "description_text", "url",
	"route_ids", "stop_ids",
	"is_complement", "parent_alert_id", "updated_at",
}

// Upsert writes the incident keyed by its content-derived id: insert on
// first sighting, update of the mutable fields on every later one.
func (s *Store) Upsert(ctx context.Context, inc *incident.Incident) error {
	inc.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(incidentUpdateColumns),
	}).Omit("Complements").Create(inc).Error
	if err != nil {
		return fmt.Errorf("upsert incident %s: %w", inc.ID, err)
	}
	return nil
}

// Get loads one incident by id.
func (s *Store) Get(ctx context.Context, id string) (*incident.Incident, error) {
	var inc incident.Incident
	if err := s.db.WithContext(ctx).First(&inc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inc, nil
}

// Touch bumps updated_at to mark recent activity on the incident.
func (s *Store) Touch(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Model(&incident.Incident{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("touch incident %s: %w", id, err)
	}
	return nil
}

// ParentCandidates returns standalone incidents whose active window contains
// at and which share at least one route with routeIDs, newest time_start
// first. SQL narrows by flag, window and a coarse route pre-filter; the
// authoritative route test is exact membership over normalized identifiers.
func (s *Store) ParentCandidates(ctx context.Context, routeIDs []string, at time.Time) ([]incident.Incident, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}

	q := s.db.WithContext(ctx).
		Where("is_complement = ?", false).
		Where("time_start <= ?", at).
		Where("time_end IS NULL OR time_end >= ?", at)

	coarse := s.db.Where("route_ids LIKE ?", "%"+incident.NormalizeID(routeIDs[0])+"%")
	for _, rid := range routeIDs[1:] {
		coarse = coarse.Or("route_ids LIKE ?", "%"+incident.NormalizeID(rid)+"%")
	}
	q = q.Where(coarse).Order("time_start DESC")

	var rows []incident.Incident
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query parent candidates: %w", err)
	}

	candidates := rows[:0]
	for _, row := range rows {
		if row.RouteIDs.ContainsAny(routeIDs) {
			candidates = append(candidates, row)
		}
	}
	return candidates, nil
}
