package gtfsrt

import (
	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// DecodeAlerts decodes a binary GTFS-RT FeedMessage and returns its service
// alerts. Entities without an Alert payload are skipped. Malformed payloads
// return a *DecodeError. The function performs no I/O.
func DecodeAlerts(data []byte) ([]Alert, error) {
	fm := &gtfsrtpb.FeedMessage{}
	if err := proto.Unmarshal(data, fm); err != nil {
		return nil, &DecodeError{Err: err}
	}

	var alerts []Alert
	for _, e := range fm.GetEntity() {
		a := e.GetAlert()
		if a == nil {
			continue
		}

		ra := Alert{
			EntityID:    e.GetId(),
			Header:      translatedStringToText(a.GetHeaderText()),
			Description: translatedStringToText(a.GetDescriptionText()),
			URL:         translatedStringToText(a.GetUrl()),
		}
		// Enum presence matters: an omitted cause must stay inferable.
		if a.Cause != nil {
			ra.Cause = a.GetCause().String()
		}
		if a.Effect != nil {
			ra.Effect = a.GetEffect().String()
		}
		for _, ap := range a.GetActivePeriod() {
			p := ActivePeriod{}
			if ap.Start != nil {
				p.Start = int64(ap.GetStart())
			}
			if ap.End != nil {
				p.End = int64(ap.GetEnd())
			}
			ra.ActivePeriods = append(ra.ActivePeriods, p)
		}
		for _, ie := range a.GetInformedEntity() {
			ra.Informed = append(ra.Informed, InformedEntity{
				RouteID: ie.GetRouteId(),
				StopID:  ie.GetStopId(),
			})
		}
		alerts = append(alerts, ra)
	}
	return alerts, nil
}

// translatedStringToText takes the first translation's text, or "" when the
// translation list is absent.
func translatedStringToText(ts *gtfsrtpb.TranslatedString) string {
	if ts == nil || len(ts.GetTranslation()) == 0 {
		return ""
	}
	return ts.GetTranslation()[0].GetText()
}
