package classifier

import (
	"strings"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/incident"
)

// The feed operator writes alerts in French. The marker and keyword tables
// below are tuned for that corpus; deployments ingesting another locale need
// to swap them out.

// complementMarkers flag a message as a follow-up or resolution.
var complementMarkers = []string{
	"complement",
	"complément",
	"fin d'incident",
	"fin alerte",
	"fin d'information",
	"fin de l'information",
	"reprise",
	"résolution",
}

// IsComplement reports whether the message is a follow-up or resolution of a
// previously reported incident, by scanning the lower-cased concatenation of
// header and description for the markers. This is a plain substring
// heuristic; false positives and negatives are accepted.
func IsComplement(header, description string) bool {
	text := strings.ToLower(header) + " " + strings.ToLower(description)
	for _, m := range complementMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// causeRule maps a keyword group to a cause. Rules are evaluated in order
// and the first match wins, so overlapping groups are deliberately ranked:
// a construction notice that also mentions an accident further down the
// table still classifies as CONSTRUCTION.
type causeRule struct {
	keywords []string
	all      bool // require every keyword instead of any
	cause    incident.Cause
}

var causeRules = []causeRule{
	{keywords: []string{"condition", "circulation", "difficile"}, all: true, cause: incident.CauseTrafficJam},
	{keywords: []string{"secours", "ambulance", "blessé", "médical", "malaise"}, cause: incident.CauseMedicalEmergency},
	{keywords: []string{"police", "gendarmerie", "sécurité", "interpellation", "contrôle"}, cause: incident.CausePoliceActivity},
	{keywords: []string{"panne", "technique", "défaillance", "incident tech", "incident d'exploitation"}, cause: incident.CauseTechnicalProblem},
	{keywords: []string{"travaux", "chantier", "aménagement"}, cause: incident.CauseConstruction},
	{keywords: []string{"maintenance", "entretien", "réparation"}, cause: incident.CauseMaintenance},
	{keywords: []string{"accident", "collision", "accrochage", "véhicule sur la voie"}, cause: incident.CauseAccident},
	{keywords: []string{"grève", "social", "mouvement social"}, cause: incident.CauseStrike},
	{keywords: []string{"manifestation", "cortège", "rassemblement", "défilé", "marche"}, cause: incident.CauseDemonstration},
	{keywords: []string{"neige", "pluie", "météo", "tempête", "vent", "intempérie", "orage", "inondation"}, cause: incident.CauseWeather},
	{keywords: []string{"fête", "festival", "événement", "férié"}, cause: incident.CauseHoliday},
}

type effectRule struct {
	keywords []string
	effect   incident.Effect
}

var effectRules = []effectRule{
	{[]string{"interrompu", "supprimé", "suppression", "annulé", "annulation", "ne circule pas"}, incident.EffectNoService},
	{[]string{"service réduit", "fréquence réduite", "fréquence allégée", "moins de tramways"}, incident.EffectReducedService},
	{[]string{"retard", "ralenti", "ralentissement", "perturbé", "perturbation"}, incident.EffectSignificantDelays},
	{[]string{"déviation", "dévié", "itinéraire modifié", "contournement"}, incident.EffectDetour},
	{[]string{"arrêt non desservi", "station non desservie", "ne marque pas l'arrêt", "sans arrêt à"}, incident.EffectStopMoved},
	{[]string{"arrêt déplacé", "reporté à", "déplacé à", "utiliser l'arrêt"}, incident.EffectStopMoved},
	{[]string{"modifi", "changement", "altération"}, incident.EffectOther},
	{[]string{"complément d'info", "information", "à noter", "rappel"}, incident.EffectOther},
}

// fullText builds the haystack both inference functions scan: lower-cased
// description followed by the header.
func fullText(header, description string) string {
	return strings.ToLower(description) + " " + strings.ToLower(header)
}

// InferCause scans the message text against the ranked cause keyword table.
// Used when the feed does not supply an explicit cause.
func InferCause(header, description string) incident.Cause {
	text := fullText(header, description)
	for _, r := range causeRules {
		if r.all {
			if containsAll(text, r.keywords) {
				return r.cause
			}
			continue
		}
		if containsAny(text, r.keywords) {
			return r.cause
		}
	}
	return incident.CauseOther
}

// InferEffect scans the message text against the ranked effect keyword table.
func InferEffect(header, description string) incident.Effect {
	text := fullText(header, description)
	for _, r := range effectRules {
		if containsAny(text, r.keywords) {
			return r.effect
		}
	}
	return incident.EffectUnknown
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func containsAll(text string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}
