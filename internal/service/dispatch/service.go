// Package dispatch drains the notification queue: it claims exclusivity for
// the run, resolves each entry's event and recipient, applies per-channel
// preference gating, renders and sends the notifications, and terminally
// marks every attempted entry as processed.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/abhonsle123/ripplefx/internal/model"
	"github.com/abhonsle123/ripplefx/internal/render"
	eventrepo "github.com/abhonsle123/ripplefx/internal/repository/event"
	profilerepo "github.com/abhonsle123/ripplefx/internal/repository/profile"
	queuerepo "github.com/abhonsle123/ripplefx/internal/repository/queue"
)

// ErrDrainInProgress is returned when another dispatch run holds the lock.
var ErrDrainInProgress = errors.New("dispatch run already in progress")

// Sender delivers one rendered notification over a channel. Email uses the
// subject; SMS ignores it.
type Sender interface {
	Send(to, subject, body string) error
}

type queueRepository interface {
	AcquireDrainLock(ctx context.Context) (func(context.Context) error, error)
	ListPending(ctx context.Context) ([]model.QueueEntry, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, errMsg *string) error
}

type eventRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Event, error)
}

type profileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error)
}

// Service drains the notification queue.
type Service struct {
	queue        queueRepository
	events       eventRepository
	profiles     profileRepository
	senders      map[model.Channel]Sender
	dashboardURL string
}

// NewService wires the dispatcher.
func NewService(
	queue queueRepository,
	events eventRepository,
	profiles profileRepository,
	senders map[model.Channel]Sender,
	dashboardURL string,
) *Service {
	return &Service{
		queue:        queue,
		events:       events,
		profiles:     profiles,
		senders:      senders,
		dashboardURL: dashboardURL,
	}
}

// Drain processes all pending queue entries in FIFO order. Each entry is
// attempted at most once: after its sends, it is marked processed regardless
// of delivery outcome, with any channel errors recorded on the entry. Entries
// whose event or profile is missing are skipped and stay unprocessed.
func (s *Service) Drain(ctx context.Context) (model.DispatchReport, error) {
	release, err := s.queue.AcquireDrainLock(ctx)
	if err != nil {
		if errors.Is(err, queuerepo.ErrDrainLocked) {
			return model.DispatchReport{}, ErrDrainInProgress
		}

		return model.DispatchReport{}, fmt.Errorf("acquire drain lock: %w", err)
	}
	defer func() {
		if err := release(ctx); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to release drain lock")
		}
	}()

	entries, err := s.queue.ListPending(ctx)
	if err != nil {
		return model.DispatchReport{}, fmt.Errorf("list pending entries: %w", err)
	}

	var report model.DispatchReport
	for _, entry := range entries {
		s.processEntry(ctx, entry, &report)
	}

	zlog.Logger.Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("emails_sent", report.EmailsSent).
		Int("sms_sent", report.SMSSent).
		Int("failures", report.Failures).
		Msg("dispatch run finished")

	return report, nil
}

func (s *Service) processEntry(ctx context.Context, entry model.QueueEntry, report *model.DispatchReport) {
	event, err := s.events.GetByID(ctx, entry.EventID)
	if err != nil {
		if errors.Is(err, eventrepo.ErrEventNotFound) {
			// Data-integrity gap, not a delivery outcome: leave the entry
			// unprocessed so it stays visible.
			zlog.Logger.Warn().Str("entry_id", entry.ID.String()).Str("event_id", entry.EventID.String()).Msg("event missing for queue entry, skipping")
			report.Skipped++
			return
		}

		zlog.Logger.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("failed to load event")
		report.Skipped++
		return
	}

	profile, err := s.profiles.GetByID(ctx, entry.ProfileID)
	if err != nil {
		if errors.Is(err, profilerepo.ErrProfileNotFound) {
			zlog.Logger.Warn().Str("entry_id", entry.ID.String()).Str("profile_id", entry.ProfileID.String()).Msg("profile missing for queue entry, skipping")
			report.Skipped++
			return
		}

		zlog.Logger.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("failed to load profile")
		report.Skipped++
		return
	}

	var sendErrors []string

	if profile.Preferences.Email.Enabled && profile.Preferences.Email.AllowsSeverity(event.Severity) {
		if err := s.sendEmail(profile, event); err != nil {
			zlog.Logger.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("email delivery failed")
			sendErrors = append(sendErrors, fmt.Sprintf("email: %v", err))
		} else {
			report.EmailsSent++
		}
	}

	if profile.Preferences.SMS.Enabled &&
		profile.Preferences.SMS.AllowsSeverity(event.Severity) &&
		profile.Preferences.SMS.PhoneNumber != "" {
		if err := s.sendSMS(profile, event); err != nil {
			zlog.Logger.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("sms delivery failed")
			sendErrors = append(sendErrors, fmt.Sprintf("sms: %v", err))
		} else {
			report.SMSSent++
		}
	}

	// Terminal transition, taken unconditionally: processed=true means
	// "dispatch was attempted exactly once", not "delivery succeeded".
	var errMsg *string
	if len(sendErrors) > 0 {
		joined := strings.Join(sendErrors, "; ")
		errMsg = &joined
		report.Failures++
	}

	if err := s.queue.MarkProcessed(ctx, entry.ID, errMsg); err != nil {
		zlog.Logger.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("failed to mark entry processed")
		return
	}

	report.Processed++
}

func (s *Service) sendEmail(profile model.Profile, event model.Event) error {
	sender, ok := s.senders[model.ChannelEmail]
	if !ok {
		return fmt.Errorf("no sender configured for channel %s", model.ChannelEmail)
	}

	body, err := render.Email(event, s.dashboardURL)
	if err != nil {
		return err
	}

	return sender.Send(profile.Email, render.EmailSubject(event), body)
}

func (s *Service) sendSMS(profile model.Profile, event model.Event) error {
	sender, ok := s.senders[model.ChannelSMS]
	if !ok {
		return fmt.Errorf("no sender configured for channel %s", model.ChannelSMS)
	}

	body := render.SMS(event, s.dashboardURL)

	return sender.Send(profile.Preferences.SMS.PhoneNumber, "", body)
}
