package publisher

import (
	"sort"
	"strconv"
	"strings"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/incident"
)

// maxSummaryLen is the hard cap of the downstream social feed.
const maxSummaryLen = 280

var causeEmoji = map[incident.Cause]string{
	incident.CauseTechnicalProblem: "🔧",
	incident.CauseStrike:           "🪧",
	incident.CauseDemonstration:    "📢",
	incident.CauseAccident:         "🚨",
	incident.CauseHoliday:          "🎉",
	incident.CauseWeather:          "🌦️",
	incident.CauseMaintenance:      "🛠️",
	incident.CauseConstruction:     "🚧",
	incident.CausePoliceActivity:   "👮",
	incident.CauseMedicalEmergency: "🚑",
	incident.CauseTrafficJam:       "🚏",
}

// Composer renders incident groups into short human-readable summaries.
type Composer struct {
	Hashtag string // appended as the last line when set, e.g. "#Montpellier"
}

// Group is a set of incidents sharing a header text, posted as one summary.
type Group struct {
	Header    string
	Incidents []incident.Incident
}

// GroupByHeader partitions incidents into groups keyed by header text,
// preserving the incidents' order (the claim query already sorts by header
// then start time).
func GroupByHeader(incidents []incident.Incident) []Group {
	var groups []Group
	index := map[string]int{}
	for _, inc := range incidents {
		i, ok := index[inc.HeaderText]
		if !ok {
			i = len(groups)
			index[inc.HeaderText] = i
			groups = append(groups, Group{Header: inc.HeaderText})
		}
		groups[i].Incidents = append(groups[i].Incidents, inc)
	}
	return groups
}

// isTramLine reports whether a normalized route label is one of the tram
// lines (1–5 on this network).
func isTramLine(label string) bool {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(label), "T"))
	if err != nil {
		return false
	}
	return n >= 1 && n <= 5
}

// routeNumber extracts the numeric part of a route label for ordering.
func routeNumber(label string) int {
	trimmed := strings.TrimLeft(label, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 1 << 30
	}
	return n
}

// routeLabels collects the distinct normalized route labels of a group,
// tram lines first, then by line number.
func routeLabels(g Group) []string {
	seen := map[string]struct{}{}
	var labels []string
	for _, inc := range g.Incidents {
		for _, rid := range inc.RouteIDs {
			label := incident.NormalizeID(rid)
			if label == "" {
				continue
			}
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		ti, tj := isTramLine(labels[i]), isTramLine(labels[j])
		if ti != tj {
			return ti
		}
		return routeNumber(labels[i]) < routeNumber(labels[j])
	})
	return labels
}

// isResolution reports whether the group announces the end of an incident;
// resolutions are posted without the cause decorations.
func isResolution(header string) bool {
	h := strings.ToLower(header)
	return strings.Contains(h, "reprise") ||
		strings.Contains(h, "résolution") ||
		strings.Contains(h, "fin d'incident")
}

// Compose renders one summary for a header group. The first incident
// provides the start time, cause and description (the group shares them by
// construction).
func (c *Composer) Compose(g Group) string {
	if len(g.Incidents) == 0 {
		return ""
	}
	first := g.Incidents[0]
	resolution := isResolution(g.Header)
	labels := routeLabels(g)

	var b strings.Builder
	if !resolution {
		if emoji, ok := causeEmoji[first.Cause]; ok {
			b.WriteString(emoji + " ")
		} else {
			b.WriteString("⚠️ ")
		}
		for _, l := range labels {
			if isTramLine(l) {
				b.WriteString("🚊 ")
				break
			}
		}
	}
	b.WriteString(first.TimeStart.Format("15:04"))
	b.WriteString("\n")
	switch {
	case len(labels) > 1:
		b.WriteString("Lignes: " + strings.Join(labels, "-") + "\n")
	case len(labels) == 1:
		b.WriteString("Ligne: " + labels[0] + "\n")
	}
	b.WriteString(first.DescriptionText)
	if c.Hashtag != "" {
		b.WriteString("\n\n" + c.Hashtag)
	}

	text := b.String()
	if runes := []rune(text); len(runes) > maxSummaryLen {
		text = string(runes[:maxSummaryLen-3]) + "..."
	}
	return text
}
