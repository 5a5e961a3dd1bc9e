package model

import (
	"time"

	"github.com/google/uuid"
)

// QueueEntry is one unit of notification work: "this event should be
// considered for notifying this profile". Processed flips false -> true
// exactly once and never reverts, regardless of delivery outcome.
type QueueEntry struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	ProfileID uuid.UUID `json:"profile_id"`
	Processed bool      `json:"processed"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestReport summarizes a single ingestion run.
type IngestReport struct {
	Fetched    int `json:"fetched"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"` // below the severity floor
	Created    int `json:"created"`
	Failed     int `json:"failed"`
}

// DispatchReport summarizes a single drain run.
type DispatchReport struct {
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"` // missing event or profile, left unprocessed
	EmailsSent int `json:"emails_sent"`
	SMSSent    int `json:"sms_sent"`
	Failures   int `json:"failures"` // entries processed with a recorded error
}
