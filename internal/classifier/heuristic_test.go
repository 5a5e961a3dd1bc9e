package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhonsle123/ripplefx/internal/model"
)

func TestClassifyHeuristic(t *testing.T) {
	tests := []struct {
		name         string
		title        string
		description  string
		wantType     model.EventType
		wantSeverity model.Severity
	}{
		{
			name:         "catastrophic earthquake",
			title:        "Major Quake Hits Region",
			description:  "catastrophic earthquake, emergency declared",
			wantType:     model.EventTypeNaturalDisaster,
			wantSeverity: model.SeverityCritical,
		},
		{
			name:         "military escalation",
			title:        "Invasion feared",
			description:  "major military buildup near the border",
			wantType:     model.EventTypeGeopolitical,
			wantSeverity: model.SeverityHigh,
		},
		{
			name:         "inflation warning",
			title:        "Inflation data released",
			description:  "moderate concern among economists",
			wantType:     model.EventTypeEconomic,
			wantSeverity: model.SeverityMedium,
		},
		{
			name:         "uncategorized calm news",
			title:        "Local festival opens",
			description:  "a pleasant weekend ahead",
			wantType:     model.EventTypeOther,
			wantSeverity: model.SeverityLow,
		},
		{
			name:         "disaster beats economic when both match",
			title:        "Hurricane disrupts markets",
			description:  "severe storm halts trading",
			wantType:     model.EventTypeNaturalDisaster,
			wantSeverity: model.SeverityHigh,
		},
		{
			name:         "critical precedence over high",
			title:        "Catastrophic major collapse",
			description:  "serious and devastating",
			wantType:     model.EventTypeOther,
			wantSeverity: model.SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classifyHeuristic(tt.title, tt.description)

			assert.Equal(t, tt.wantType, res.EventType)
			assert.Equal(t, tt.wantSeverity, res.Severity)
			assert.Equal(t, model.MethodHeuristic, res.Method)
			assert.Equal(t, heuristicConfidence, res.Confidence)
		})
	}
}

func TestClassifyHeuristic_CaseInsensitive(t *testing.T) {
	res := classifyHeuristic("EARTHQUAKE EMERGENCY", "")
	assert.Equal(t, model.EventTypeNaturalDisaster, res.EventType)
	assert.Equal(t, model.SeverityCritical, res.Severity)
}

func TestSeveritySupported(t *testing.T) {
	assert.True(t, severitySupported(model.SeverityLow, "anything", "at all"))
	assert.True(t, severitySupported(model.SeverityHigh, "major move", ""))
	assert.True(t, severitySupported(model.SeverityHigh, "catastrophic", "critical group supports lower tiers"))
	assert.False(t, severitySupported(model.SeverityCritical, "major move", "no critical terms"))
	assert.False(t, severitySupported(model.SeverityMedium, "plain text", "no keywords"))
}
