package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/incident"
)

// Publication workflow. The pipeline never calls these; they belong to the
// publisher, which claims unposted incidents, posts summaries and marks the
// outcome.

// ClaimUnposted atomically selects up to limit unposted, unclaimed incidents
// starting at or after since, flags them as processing, and returns them
// ordered by header text then start time (the grouping order the composer
// expects).
func (s *Store) ClaimUnposted(ctx context.Context, since time.Time, limit int) ([]incident.Incident, error) {
	var claimed []incident.Incident

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("is_posted = ? AND is_processing = ?", false, false).
			Where("time_start >= ?", since).
			Order("header_text ASC, time_start ASC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}

		now := time.Now()
		ids := make([]string, len(claimed))
		for i := range claimed {
			ids[i] = claimed[i].ID
			claimed[i].IsProcessing = true
			claimed[i].InProcessSince = &now
		}
		return tx.Model(&incident.Incident{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"is_processing": true, "in_process_since": now}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim unposted incidents: %w", err)
	}
	return claimed, nil
}

// MarkPosted records successful publication and releases the claim.
func (s *Store) MarkPosted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&incident.Incident{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"is_posted":        true,
			"is_processing":    false,
			"in_process_since": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("mark incidents posted: %w", err)
	}
	return nil
}

// Release clears the processing claim without marking the incidents posted,
// so a failed publication is retried on a later pass.
func (s *Store) Release(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&incident.Incident{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"is_processing":    false,
			"in_process_since": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("release incidents: %w", err)
	}
	return nil
}

// ReleaseStuck clears claims whose poster died mid-publication: rows still
// flagged processing whose claim is older than olderThan. Returns how many
// rows were recovered.
func (s *Store) ReleaseStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.db.WithContext(ctx).Model(&incident.Incident{}).
		Where("is_processing = ? AND is_posted = ?", true, false).
		Where("in_process_since IS NOT NULL AND in_process_since < ?", cutoff).
		Updates(map[string]any{
			"is_processing":    false,
			"in_process_since": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("release stuck incidents: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountUnposted reports how many incidents starting at or after since still
// await publication.
func (s *Store) CountUnposted(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&incident.Incident{}).
		Where("is_posted = ?", false).
		Where("time_start >= ?", since).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unposted incidents: %w", err)
	}
	return n, nil
}
