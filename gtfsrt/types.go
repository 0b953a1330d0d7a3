package gtfsrt

// ActivePeriod is one time window during which an alert applies.
// Zero values mean the bound is absent from the feed.
type ActivePeriod struct {
	Start int64
	End   int64
}

// InformedEntity identifies which route and/or stop a message concerns.
// Either field may be empty; source order is preserved.
type InformedEntity struct {
	RouteID string
	StopID  string
}

// Alert is a decoded GTFS-RT service alert, flattened to the fields the
// pipeline consumes. Text fields hold the first translation's text, or ""
// when the translation list is absent.
type Alert struct {
	EntityID      string
	ActivePeriods []ActivePeriod
	Informed      []InformedEntity
	Header        string
	Description   string
	URL           string
	Cause         string // GTFS-RT enum name, "" when the feed omits it
	Effect        string
}

// RouteIDs returns the route identifiers carried by the informed entities,
// in source order.
func (a *Alert) RouteIDs() []string {
	var ids []string
	for _, ie := range a.Informed {
		if ie.RouteID != "" {
			ids = append(ids, ie.RouteID)
		}
	}
	return ids
}

// StopIDs returns the stop identifiers carried by the informed entities, in
// source order.
func (a *Alert) StopIDs() []string {
	var ids []string
	for _, ie := range a.Informed {
		if ie.StopID != "" {
			ids = append(ids, ie.StopID)
		}
	}
	return ids
}

// FirstPeriod returns the alert's first active period, or false when the
// feed supplied none.
func (a *Alert) FirstPeriod() (ActivePeriod, bool) {
	if len(a.ActivePeriods) == 0 {
		return ActivePeriod{}, false
	}
	return a.ActivePeriods[0], true
}
