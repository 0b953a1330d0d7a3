package server

import (
	"time"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/incident"
)

// alertView is the JSON shape served by GET /api/alerts. The publication
// workflow columns stay internal.
type alertView struct {
	ID              string      `json:"id"`
	TimeStart       time.Time   `json:"timeStart"`
	TimeEnd         *time.Time  `json:"timeEnd,omitempty"`
	Cause           string      `json:"cause"`
	Effect          string      `json:"effect"`
	HeaderText      string      `json:"headerText"`
	DescriptionText string      `json:"descriptionText"`
	URL             string      `json:"url,omitempty"`
	RouteIDs        []string    `json:"routeIds"`
	StopIDs         []string    `json:"stopIds"`
	IsComplement    bool        `json:"isComplement"`
	ParentAlertID   *string     `json:"parentAlertId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	Complements     []alertView `json:"complements,omitempty"`
}

type pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type alertsResponse struct {
	Alerts     []alertView `json:"alerts"`
	Pagination pagination  `json:"pagination"`
}

func toView(in *incident.Incident) alertView {
	v := alertView{
		ID:              in.ID,
		TimeStart:       in.TimeStart,
		TimeEnd:         in.TimeEnd,
		Cause:           string(in.Cause),
		Effect:          string(in.Effect),
		HeaderText:      in.HeaderText,
		DescriptionText: in.DescriptionText,
		URL:             in.URL,
		RouteIDs:        in.RouteIDs,
		StopIDs:         in.StopIDs,
		IsComplement:    in.IsComplement,
		ParentAlertID:   in.ParentAlertID,
		CreatedAt:       in.CreatedAt,
		UpdatedAt:       in.UpdatedAt,
	}
	if v.RouteIDs == nil {
		v.RouteIDs = []string{}
	}
	if v.StopIDs == nil {
		v.StopIDs = []string{}
	}
	for i := range in.Complements {
		v.Complements = append(v.Complements, toView(&in.Complements[i]))
	}
	return v
}

func toViews(ins []incident.Incident) []alertView {
	views := make([]alertView, 0, len(ins))
	for i := range ins {
		views = append(views, toView(&ins[i]))
	}
	return views
}
