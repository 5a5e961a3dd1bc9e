package model

import "github.com/google/uuid"

// Channel names a delivery mechanism the dispatcher can use.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ChannelPreference is one channel's opt-in state for a profile. The three
// severity flags gate delivery per tier; CRITICAL shares the high flag.
type ChannelPreference struct {
	Enabled        bool   `json:"enabled"`
	HighSeverity   bool   `json:"high_severity"`
	MediumSeverity bool   `json:"medium_severity"`
	LowSeverity    bool   `json:"low_severity"`
	PhoneNumber    string `json:"phone_number,omitempty"`
}

// AllowsSeverity reports whether the preference's severity flags admit s.
func (p ChannelPreference) AllowsSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityHigh:
		return p.HighSeverity
	case SeverityMedium:
		return p.MediumSeverity
	case SeverityLow:
		return p.LowSeverity
	}
	return false
}

// NotificationPreferences holds all channel preferences for one profile.
// Owned by the profile subsystem; read-only to this pipeline.
type NotificationPreferences struct {
	Email ChannelPreference `json:"email"`
	SMS   ChannelPreference `json:"sms"`
}

// Profile is a notification recipient.
type Profile struct {
	ID          uuid.UUID               `json:"id"`
	Email       string                  `json:"email"`
	Preferences NotificationPreferences `json:"preferences"`
}
