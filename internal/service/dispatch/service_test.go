package dispatch

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhonsle123/ripplefx/internal/model"
	eventrepo "github.com/abhonsle123/ripplefx/internal/repository/event"
	profilerepo "github.com/abhonsle123/ripplefx/internal/repository/profile"
	queuerepo "github.com/abhonsle123/ripplefx/internal/repository/queue"
)

type fakeQueueRepo struct {
	entries  []model.QueueEntry
	locked   bool
	releases int
}

func (f *fakeQueueRepo) AcquireDrainLock(_ context.Context) (func(context.Context) error, error) {
	if f.locked {
		return nil, queuerepo.ErrDrainLocked
	}
	return func(context.Context) error {
		f.releases++
		return nil
	}, nil
}

func (f *fakeQueueRepo) ListPending(_ context.Context) ([]model.QueueEntry, error) {
	var pending []model.QueueEntry
	for _, e := range f.entries {
		if !e.Processed {
			pending = append(pending, e)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

func (f *fakeQueueRepo) MarkProcessed(_ context.Context, id uuid.UUID, errMsg *string) error {
	for i := range f.entries {
		if f.entries[i].ID == id && !f.entries[i].Processed {
			f.entries[i].Processed = true
			f.entries[i].Error = errMsg
			return nil
		}
	}
	return queuerepo.ErrEntryNotFound
}

func (f *fakeQueueRepo) entry(id uuid.UUID) model.QueueEntry {
	for _, e := range f.entries {
		if e.ID == id {
			return e
		}
	}
	return model.QueueEntry{}
}

type fakeEventRepo struct {
	events map[uuid.UUID]model.Event
}

func (f *fakeEventRepo) GetByID(_ context.Context, id uuid.UUID) (model.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return model.Event{}, eventrepo.ErrEventNotFound
	}
	return event, nil
}

type fakeProfileRepo struct {
	profiles map[uuid.UUID]model.Profile
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (model.Profile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, profilerepo.ErrProfileNotFound
	}
	return profile, nil
}

type fakeSender struct {
	sent []string // recipients in send order
	err  error
}

func (f *fakeSender) Send(to, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fixture struct {
	queue    *fakeQueueRepo
	events   *fakeEventRepo
	profiles *fakeProfileRepo
	email    *fakeSender
	sms      *fakeSender
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		queue:    &fakeQueueRepo{},
		events:   &fakeEventRepo{events: map[uuid.UUID]model.Event{}},
		profiles: &fakeProfileRepo{profiles: map[uuid.UUID]model.Profile{}},
		email:    &fakeSender{},
		sms:      &fakeSender{},
	}
	f.svc = NewService(f.queue, f.events, f.profiles, map[model.Channel]Sender{
		model.ChannelEmail: f.email,
		model.ChannelSMS:   f.sms,
	}, "https://app.example.com/dashboard")
	return f
}

func (f *fixture) addEvent(severity model.Severity) model.Event {
	event := model.Event{
		ID:          uuid.New(),
		Title:       "Major selloff",
		Description: "serious market crash",
		EventType:   model.EventTypeEconomic,
		Severity:    severity,
	}
	f.events.events[event.ID] = event
	return event
}

func (f *fixture) addProfile(prefs model.NotificationPreferences) model.Profile {
	profile := model.Profile{ID: uuid.New(), Email: "user@example.com", Preferences: prefs}
	f.profiles.profiles[profile.ID] = profile
	return profile
}

func (f *fixture) addEntry(eventID, profileID uuid.UUID, age time.Duration) uuid.UUID {
	id := uuid.New()
	f.queue.entries = append(f.queue.entries, model.QueueEntry{
		ID:        id,
		EventID:   eventID,
		ProfileID: profileID,
		CreatedAt: time.Now().Add(-age),
	})
	return id
}

func allChannelsOn() model.NotificationPreferences {
	return model.NotificationPreferences{
		Email: model.ChannelPreference{Enabled: true, HighSeverity: true, MediumSeverity: true, LowSeverity: true},
		SMS:   model.ChannelPreference{Enabled: true, HighSeverity: true, MediumSeverity: true, LowSeverity: true, PhoneNumber: "+15550001111"},
	}
}

func TestDrain_SendsBothChannels(t *testing.T) {
	f := newFixture()
	event := f.addEvent(model.SeverityCritical)
	profile := f.addProfile(allChannelsOn())
	entryID := f.addEntry(event.ID, profile.ID, time.Minute)

	report, err := f.svc.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.EmailsSent)
	assert.Equal(t, 1, report.SMSSent)
	assert.Zero(t, report.Failures)
	assert.Equal(t, []string{"user@example.com"}, f.email.sent)
	assert.Equal(t, []string{"+15550001111"}, f.sms.sent)

	entry := f.queue.entry(entryID)
	assert.True(t, entry.Processed)
	assert.Nil(t, entry.Error)
	assert.Equal(t, 1, f.queue.releases)
}

func TestDrain_SeverityFlagOffSkipsChannel(t *testing.T) {
	// Email enabled but high-severity opt-out: the channel is skipped, the
	// entry is still processed, and no error is recorded.
	f := newFixture()
	event := f.addEvent(model.SeverityHigh)
	profile := f.addProfile(model.NotificationPreferences{
		Email: model.ChannelPreference{Enabled: true, HighSeverity: false},
		SMS:   model.ChannelPreference{Enabled: false},
	})
	entryID := f.addEntry(event.ID, profile.ID, time.Minute)

	report, err := f.svc.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Zero(t, report.EmailsSent)
	assert.Zero(t, report.SMSSent)
	assert.Zero(t, report.Failures)

	entry := f.queue.entry(entryID)
	assert.True(t, entry.Processed)
	assert.Nil(t, entry.Error)
}

func TestDrain_PartialFailureRecordsErrorAndStillProcesses(t *testing.T) {
	// Email succeeds, SMS throws: the entry is processed, the SMS failure is
	// recorded, and the email still counts as sent.
	f := newFixture()
	f.sms.err = errors.New("gateway unavailable")

	event := f.addEvent(model.SeverityCritical)
	profile := f.addProfile(allChannelsOn())
	entryID := f.addEntry(event.ID, profile.ID, time.Minute)

	report, err := f.svc.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.EmailsSent)
	assert.Zero(t, report.SMSSent)
	assert.Equal(t, 1, report.Failures)

	entry := f.queue.entry(entryID)
	assert.True(t, entry.Processed)
	require.NotNil(t, entry.Error)
	assert.Contains(t, *entry.Error, "sms: gateway unavailable")
}

func TestDrain_MissingEventLeavesEntryUnprocessed(t *testing.T) {
	f := newFixture()
	profile := f.addProfile(allChannelsOn())
	entryID := f.addEntry(uuid.New(), profile.ID, time.Minute)

	report, err := f.svc.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Processed)
	assert.False(t, f.queue.entry(entryID).Processed)
}

func TestDrain_MissingProfileLeavesEntryUnprocessed(t *testing.T) {
	f := newFixture()
	event := f.addEvent(model.SeverityHigh)
	entryID := f.addEntry(event.ID, uuid.New(), time.Minute)

	report, err := f.svc.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.False(t, f.queue.entry(entryID).Processed)
}

func TestDrain_FIFOOrder(t *testing.T) {
	f := newFixture()
	event := f.addEvent(model.SeverityCritical)

	older := f.addProfile(allChannelsOn())
	newer := f.addProfile(allChannelsOn())
	f.profiles.profiles[older.ID] = model.Profile{ID: older.ID, Email: "older@example.com", Preferences: allChannelsOn()}
	f.profiles.profiles[newer.ID] = model.Profile{ID: newer.ID, Email: "newer@example.com", Preferences: allChannelsOn()}

	// Inserted newest-first; the drain must still process oldest-first.
	f.addEntry(event.ID, newer.ID, time.Minute)
	f.addEntry(event.ID, older.ID, 2*time.Hour)

	_, err := f.svc.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"older@example.com", "newer@example.com"}, f.email.sent)
}

func TestDrain_Idempotent(t *testing.T) {
	f := newFixture()
	event := f.addEvent(model.SeverityCritical)
	profile := f.addProfile(allChannelsOn())
	f.addEntry(event.ID, profile.ID, time.Minute)

	first, err := f.svc.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	second, err := f.svc.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Processed)
	assert.Zero(t, second.EmailsSent)
	assert.Zero(t, second.SMSSent)
	assert.Len(t, f.email.sent, 1)
}

func TestDrain_LockBusy(t *testing.T) {
	f := newFixture()
	f.queue.locked = true

	_, err := f.svc.Drain(context.Background())
	assert.ErrorIs(t, err, ErrDrainInProgress)
}
