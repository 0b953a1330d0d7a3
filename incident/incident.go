package incident

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Cause classifies why service is disrupted. The values follow the GTFS-RT
// Cause enumeration, extended with TRAFFIC_JAM which the source feed uses in
// free text but the GTFS-RT spec does not define.
type Cause string

const (
	CauseTrafficJam       Cause = "TRAFFIC_JAM"
	CauseMedicalEmergency Cause = "MEDICAL_EMERGENCY"
	CausePoliceActivity   Cause = "POLICE_ACTIVITY"
	CauseTechnicalProblem Cause = "TECHNICAL_PROBLEM"
	CauseConstruction     Cause = "CONSTRUCTION"
	CauseMaintenance      Cause = "MAINTENANCE"
	CauseAccident         Cause = "ACCIDENT"
	CauseStrike           Cause = "STRIKE"
	CauseDemonstration    Cause = "DEMONSTRATION"
	CauseWeather          Cause = "WEATHER"
	CauseHoliday          Cause = "HOLIDAY"
	CauseOther            Cause = "OTHER_CAUSE"
)

// Effect classifies how service is disrupted, following the GTFS-RT Effect
// enumeration.
type Effect string

const (
	EffectNoService         Effect = "NO_SERVICE"
	EffectReducedService    Effect = "REDUCED_SERVICE"
	EffectSignificantDelays Effect = "SIGNIFICANT_DELAYS"
	EffectDetour            Effect = "DETOUR"
	EffectStopMoved         Effect = "STOP_MOVED"
	EffectOther             Effect = "OTHER_EFFECT"
	EffectUnknown           Effect = "UNKNOWN_EFFECT"
)

// Incident is a persisted transit-disruption record. One row per logical
// incident as seen by the feed; follow-up messages become their own rows
// linked back through ParentAlertID.
type Incident struct {
	// ID is content-derived (feed entity id + header hash) so that repeated
	// polls of the same logical incident upsert instead of duplicating.
	ID string `gorm:"primaryKey;size:128"`

	TimeStart time.Time  `gorm:"not null;index"`
	TimeEnd   *time.Time `gorm:"index"`

	Cause  Cause  `gorm:"size:32;not null"`
	Effect Effect `gorm:"size:32;not null"`

	HeaderText      string `gorm:"not null;index"`
	DescriptionText string `gorm:"not null"`
	URL             string

	RouteIDs IDList `gorm:"type:text"`
	StopIDs  IDList `gorm:"type:text"`

	IsComplement  bool    `gorm:"not null;default:false;index"`
	ParentAlertID *string `gorm:"size:128;index"`

	// Publication workflow state, owned by the publisher.
	IsPosted       bool `gorm:"not null;default:false;index"`
	IsProcessing   bool `gorm:"not null;default:false"`
	InProcessSince *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Complements []Incident `gorm:"foreignKey:ParentAlertID" json:"complements,omitempty"`
}

func (Incident) TableName() string { return "incidents" }

// Active reports whether the incident's window contains t. A nil TimeEnd
// means the incident is open-ended.
func (i *Incident) Active(t time.Time) bool {
	if i.TimeStart.After(t) {
		return false
	}
	return i.TimeEnd == nil || !i.TimeEnd.Before(t)
}

// ComputeID derives the stable dedup key for a feed entity:
// entityID + "_" + hex(md5(headerText)). Entities without a header fall back
// to hashing the current timestamp, making the id unique per sighting; such
// messages cannot be deduplicated anyway.
func ComputeID(entityID, headerText string, now time.Time) string {
	base := headerText
	if base == "" {
		base = now.Format(time.RFC3339)
	}
	sum := md5.Sum([]byte(base))
	return entityID + "_" + hex.EncodeToString(sum[:])
}
