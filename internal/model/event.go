package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Severity is the ordered impact tier assigned to an event.
// Only HIGH and CRITICAL events survive the severity gate.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Valid reports whether s is one of the four known tiers.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the position of s in the LOW < MEDIUM < HIGH < CRITICAL order.
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is the same tier as min or higher.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// Downgrade returns the tier one step below s. LOW stays LOW.
func (s Severity) Downgrade() Severity {
	switch s {
	case SeverityCritical:
		return SeverityHigh
	case SeverityHigh:
		return SeverityMedium
	case SeverityMedium:
		return SeverityLow
	default:
		return SeverityLow
	}
}

// EventType is the coarse market-relevance category of an event.
type EventType string

const (
	EventTypeNaturalDisaster EventType = "NATURAL_DISASTER"
	EventTypeGeopolitical    EventType = "GEOPOLITICAL"
	EventTypeEconomic        EventType = "ECONOMIC"
	EventTypeOther           EventType = "OTHER"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeNaturalDisaster, EventTypeGeopolitical, EventTypeEconomic, EventTypeOther:
		return true
	}
	return false
}

// SourceAPI identifies the upstream feed an article came from.
type SourceAPI string

const (
	SourceNewsAPI    SourceAPI = "news_api"
	SourceFinnhubAPI SourceAPI = "finnhub_api"
	SourceUser       SourceAPI = "user"
)

// Article is a normalized in-flight ingestion record. It is never persisted
// on its own; a qualifying article becomes an Event.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SourceURL   string    `json:"source_url"`
	SourceAPI   SourceAPI `json:"source_api"`
}

// ClassificationMethod records which classifier produced a result.
type ClassificationMethod string

const (
	MethodAI        ClassificationMethod = "ai"
	MethodHeuristic ClassificationMethod = "heuristic"
)

// ClassificationResult is the outcome of classifying a single article.
// It is folded into the Event at creation time, never stored on its own.
type ClassificationResult struct {
	EventType  EventType            `json:"event_type"`
	Severity   Severity             `json:"severity"`
	Confidence float64              `json:"confidence"`
	Method     ClassificationMethod `json:"method"`
	Reasoning  string               `json:"reasoning"`
}

// Event is a persisted, classified, severity-admitted market occurrence.
// Title is the deduplication key and carries a unique index.
type Event struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	EventType      EventType       `json:"event_type"`
	Severity       Severity        `json:"severity"`
	SourceURL      string          `json:"source_url"`
	SourceAPI      SourceAPI       `json:"source_api"`
	IsPublic       bool            `json:"is_public"`
	ImpactAnalysis json.RawMessage `json:"impact_analysis,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ImpactAnalysis is the shape this pipeline understands inside the otherwise
// opaque Event.ImpactAnalysis blob. Fields missing from the blob render empty.
type ImpactAnalysis struct {
	Summary               string            `json:"summary"`
	Location              string            `json:"location"`
	AffectedOrganizations []string          `json:"affected_organizations"`
	StockPredictions      []StockPrediction `json:"stock_predictions"`
}

// StockPrediction is one predicted ticker move from the analysis collaborator.
type StockPrediction struct {
	Symbol    string `json:"symbol"`
	Direction string `json:"direction"` // "positive" or "negative"
	Rationale string `json:"rationale"`
}

// ParseImpactAnalysis decodes the opaque blob, returning a zero value when the
// blob is absent or malformed. Rendering treats both the same way.
func ParseImpactAnalysis(raw json.RawMessage) ImpactAnalysis {
	var ia ImpactAnalysis
	if len(raw) == 0 {
		return ia
	}
	_ = json.Unmarshal(raw, &ia)
	return ia
}
