package classifier

import (
	"regexp"
	"strings"

	"github.com/abhonsle123/ripplefx/internal/model"
)

// heuristicConfidence is the fixed confidence attached to keyword-based
// results; low enough that a later AI reclassification would win.
const heuristicConfidence = 0.5

var (
	disasterPattern     = regexp.MustCompile(`\b(earthquake|quake|hurricane|typhoon|cyclone|tsunami|flood|flooding|wildfire|tornado|volcano|eruption|landslide|drought|storm|blizzard)\b`)
	geopoliticalPattern = regexp.MustCompile(`\b(war|invasion|military|missile|sanctions?|coup|conflict|treaty|election|ceasefire|diplomatic|airstrike|insurgen\w*|terroris\w*|annex\w*)\b`)
	economicPattern     = regexp.MustCompile(`\b(market|stocks?|inflation|recession|interest rates?|fed|central bank|earnings|gdp|unemployment|tariffs?|default|bankruptcy|currency|bonds?|trade deal)\b`)

	criticalPattern = regexp.MustCompile(`\b(catastroph\w*|emergency|devastat\w*|collapse|pandemic|nuclear|meltdown|state of emergency|mass casualt\w*|unprecedented)\b`)
	highPattern     = regexp.MustCompile(`\b(major|serious|severe|significant|crisis|surge|crash|outbreak|escalat\w*|plunge|soar\w*)\b`)
	mediumPattern   = regexp.MustCompile(`\b(moderate|warning|concern\w*|decline|drop|slowdown|tension\w*|dispute|uncertain\w*)\b`)
)

// classifyHeuristic assigns type and severity from keyword matches over the
// combined title and description. It is the guaranteed floor of the
// classification pipeline and cannot fail.
func classifyHeuristic(title, description string) model.ClassificationResult {
	text := strings.ToLower(title + " " + description)

	eventType := model.EventTypeOther
	switch {
	case disasterPattern.MatchString(text):
		eventType = model.EventTypeNaturalDisaster
	case geopoliticalPattern.MatchString(text):
		eventType = model.EventTypeGeopolitical
	case economicPattern.MatchString(text):
		eventType = model.EventTypeEconomic
	}

	// Precedence order matters: first matching tier wins.
	severity := model.SeverityLow
	switch {
	case criticalPattern.MatchString(text):
		severity = model.SeverityCritical
	case highPattern.MatchString(text):
		severity = model.SeverityHigh
	case mediumPattern.MatchString(text):
		severity = model.SeverityMedium
	}

	return model.ClassificationResult{
		EventType:  eventType,
		Severity:   severity,
		Confidence: heuristicConfidence,
		Method:     model.MethodHeuristic,
		Reasoning:  "keyword match on title and description",
	}
}

// severitySupported reports whether the text carries keyword evidence for the
// assigned tier. A tier is supported by its own keyword group or any group
// above it; LOW needs no evidence.
func severitySupported(severity model.Severity, title, description string) bool {
	text := strings.ToLower(title + " " + description)

	switch severity {
	case model.SeverityCritical:
		return criticalPattern.MatchString(text)
	case model.SeverityHigh:
		return criticalPattern.MatchString(text) || highPattern.MatchString(text)
	case model.SeverityMedium:
		return criticalPattern.MatchString(text) || highPattern.MatchString(text) || mediumPattern.MatchString(text)
	}
	return true
}
