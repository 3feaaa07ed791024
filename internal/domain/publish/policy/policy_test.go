package policy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	draftdao "github.com/vadim/postline/internal/domain/draft/dao"
	draftent "github.com/vadim/postline/internal/domain/draft/entity"
	draftsvc "github.com/vadim/postline/internal/domain/draft/service"
	scheddao "github.com/vadim/postline/internal/domain/schedule/dao"
	schedent "github.com/vadim/postline/internal/domain/schedule/entity"
	schedsvc "github.com/vadim/postline/internal/domain/schedule/service"
	"github.com/vadim/postline/internal/publisher"
	"github.com/vadim/postline/internal/safety"
)

type stubPublisher struct {
	name  string
	label string
	calls int
	fn    func(text, imagePath string) (string, error)
}

func (p *stubPublisher) Name() string  { return p.name }
func (p *stubPublisher) Label() string { return p.label }

func (p *stubPublisher) Publish(_ context.Context, text, imagePath string) (string, error) {
	p.calls++
	return p.fn(text, imagePath)
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.messages = append(n.messages, text)
	return nil
}

type recordingCalendar struct {
	done map[string]int
}

func (c *recordingCalendar) MarkDone(_ context.Context, entryID, postID string) error {
	if c.done == nil {
		c.done = make(map[string]int)
	}
	c.done[entryID]++
	return nil
}

type fixture struct {
	policy   *Policy
	drafts   *draftsvc.Service
	schedule *schedsvc.Service
	breaker  *safety.Breaker
	notifier *recordingNotifier
	calendar *recordingCalendar
}

func newFixture(t *testing.T, pubs ...publisher.Publisher) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	drafts := draftsvc.New(draftdao.NewBackupMemory(), logger, draftsvc.Options{})
	schedule := schedsvc.New(scheddao.NewEntryMemory(), logger)
	breaker := safety.New(3, 10*time.Minute, 30*time.Minute, safety.WithLogger(logger))
	notifier := &recordingNotifier{}
	calendar := &recordingCalendar{}

	p := New(drafts, schedule, publisher.NewRegistry(pubs...), breaker, calendar, notifier, 7, logger)
	return &fixture{
		policy:   p,
		drafts:   drafts,
		schedule: schedule,
		breaker:  breaker,
		notifier: notifier,
		calendar: calendar,
	}
}

func okPublisher(name, label string) *stubPublisher {
	return &stubPublisher{name: name, label: label, fn: func(string, string) (string, error) {
		return "posted", nil
	}}
}

func failingPublisher(name, label string) *stubPublisher {
	return &stubPublisher{name: name, label: label, fn: func(string, string) (string, error) {
		return "", errors.New("connection reset")
	}}
}

func approvedDraft(t *testing.T, f *fixture, channels ...string) *draftent.Draft {
	t.Helper()
	d, err := f.drafts.Create(context.Background(), draftsvc.CreateInput{
		Topic:    "launch week",
		Text:     "we are live",
		Author:   "tim",
		Channels: channels,
	})
	require.NoError(t, err)
	d, err = f.drafts.Approve(context.Background(), d.ID)
	require.NoError(t, err)
	return d
}

// Scenario: one channel fails, the other succeeds. The entry still
// completes as published and the summary carries both outcome lines.
func TestPartialChannelFailureStillPublishesEntry(t *testing.T) {
	ok := okPublisher("linkedin", "LinkedIn")
	bad := failingPublisher("telegram", "Telegram")
	f := newFixture(t, ok, bad)

	d := approvedDraft(t, f, "linkedin", "telegram")
	e, err := f.schedule.Schedule(context.Background(), d.ID, []string{"linkedin", "telegram"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))

	cur, err := f.schedule.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, schedent.EntryStatusPublished, cur.Status)

	updated, err := f.drafts.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, draftent.DraftStatusPublished, updated.Status)

	require.Len(t, f.notifier.messages, 1)
	summary := f.notifier.messages[0]
	assert.Contains(t, summary, "+ LinkedIn: posted")
	assert.Contains(t, summary, "- Telegram: connection reset")

	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)
}

// Scenario: the breaker is open. The entry fails without any channel
// attempt.
func TestOpenBreakerFailsEntryWithoutPublishing(t *testing.T) {
	pub := okPublisher("linkedin", "LinkedIn")
	f := newFixture(t, pub)

	for i := 0; i < 3; i++ {
		f.breaker.RecordFailure()
	}
	require.True(t, f.breaker.IsOpen())

	d := approvedDraft(t, f, "linkedin")
	e, err := f.schedule.Schedule(context.Background(), d.ID, []string{"linkedin"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))

	cur, err := f.schedule.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, schedent.EntryStatusFailed, cur.Status)
	assert.Equal(t, ReasonBreakerOpen, cur.Error)
	assert.Zero(t, pub.calls, "no publisher may be invoked while the breaker is open")

	// Draft stays retryable.
	updated, err := f.drafts.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, draftent.DraftStatusApproved, updated.Status)
}

// Scenario: the referenced draft no longer exists. The entry fails fast
// with no channel attempt.
func TestMissingDraftFailsEntry(t *testing.T) {
	pub := okPublisher("linkedin", "LinkedIn")
	f := newFixture(t, pub)

	e, err := f.schedule.Schedule(context.Background(), "gone-404", []string{"linkedin"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))

	cur, err := f.schedule.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, schedent.EntryStatusFailed, cur.Status)
	assert.Equal(t, ReasonDraftNotFound, cur.Error)
	assert.Zero(t, pub.calls)
}

func TestUnknownChannelIsNonFatalAndSkipsBreaker(t *testing.T) {
	ok := okPublisher("linkedin", "LinkedIn")
	f := newFixture(t, ok)

	d := approvedDraft(t, f, "linkedin", "myspace")
	_, err := f.schedule.Schedule(context.Background(), d.ID, []string{"myspace", "linkedin"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))

	// The known channel is still attempted after the unknown one.
	assert.Equal(t, 1, ok.calls)

	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "- myspace: unknown channel")

	// A misconfigured channel name must not trip the breaker.
	assert.False(t, f.breaker.IsOpen())
	assert.Equal(t, "closed (0/3 recent failures)", f.breaker.Status())
}

func TestCalendarMarkedDoneOncePerEntryOnFullSuccess(t *testing.T) {
	ok := okPublisher("linkedin", "LinkedIn")
	f := newFixture(t, ok)

	d := approvedDraft(t, f, "linkedin")
	cal := "cal-7"
	_, err := f.drafts.Update(context.Background(), d.ID, draftsvc.UpdateInput{CalendarEntryID: &cal})
	require.NoError(t, err)

	_, err = f.schedule.Schedule(context.Background(), d.ID, []string{"linkedin"}, time.Now())
	require.NoError(t, err)

	// Two passes over the same queue: side effects must not repeat.
	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))
	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))

	assert.Equal(t, 1, f.calendar.done[cal])
	assert.Len(t, f.notifier.messages, 1)
	assert.Equal(t, 1, ok.calls)
}

func TestCalendarNotMarkedOnPartialSuccess(t *testing.T) {
	ok := okPublisher("linkedin", "LinkedIn")
	bad := failingPublisher("telegram", "Telegram")
	f := newFixture(t, ok, bad)

	d := approvedDraft(t, f, "linkedin", "telegram")
	cal := "cal-9"
	_, err := f.drafts.Update(context.Background(), d.ID, draftsvc.UpdateInput{CalendarEntryID: &cal})
	require.NoError(t, err)

	_, err = f.schedule.Schedule(context.Background(), d.ID, []string{"linkedin", "telegram"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))

	assert.Zero(t, f.calendar.done[cal], "partial success must not complete the calendar entry")
}

func TestAllChannelsFailingLeavesDraftApproved(t *testing.T) {
	bad := failingPublisher("linkedin", "LinkedIn")
	f := newFixture(t, bad)

	d := approvedDraft(t, f, "linkedin")
	e, err := f.schedule.Schedule(context.Background(), d.ID, []string{"linkedin"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))

	// Entry completes either way; the draft stays approved for retry.
	cur, err := f.schedule.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, schedent.EntryStatusPublished, cur.Status)

	updated, err := f.drafts.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, draftent.DraftStatusApproved, updated.Status)
}

func TestRepeatedFailuresOpenBreakerAcrossEntries(t *testing.T) {
	bad := failingPublisher("linkedin", "LinkedIn")
	f := newFixture(t, bad)

	d := approvedDraft(t, f, "linkedin")
	_, err := f.schedule.Schedule(context.Background(), d.ID, []string{"linkedin", "linkedin", "linkedin"}, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.policy.ProcessDueEntries(context.Background()))

	assert.True(t, f.breaker.IsOpen(), "three failed legs within the lookback must open the breaker")
}

func TestPublishNowRequiresApproval(t *testing.T) {
	pub := okPublisher("linkedin", "LinkedIn")
	f := newFixture(t, pub)

	d, err := f.drafts.Create(context.Background(), draftsvc.CreateInput{
		Topic: "t", Text: "v", Channels: []string{"linkedin"},
	})
	require.NoError(t, err)

	_, err = f.policy.PublishNow(context.Background(), d.ID, nil)
	assert.ErrorIs(t, err, ErrDraftNotApproved)
	assert.Zero(t, pub.calls)
}

func TestPublishNowUsesDraftChannelsByDefault(t *testing.T) {
	pub := okPublisher("linkedin", "LinkedIn")
	f := newFixture(t, pub)

	d := approvedDraft(t, f, "linkedin")

	res, err := f.policy.PublishNow(context.Background(), d.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.AllOK())
	assert.Equal(t, 1, pub.calls)

	updated, err := f.drafts.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, draftent.DraftStatusPublished, updated.Status)
}

func TestSummaryFormat(t *testing.T) {
	res := FanoutResult{Legs: []LegResult{
		{Channel: "linkedin", Label: "LinkedIn", Message: "posted", OK: true},
		{Channel: "threads", Label: "Threads", Message: "timeout"},
	}}

	summary := res.Summary("launch week")
	lines := strings.Split(strings.TrimSpace(summary), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "launch week")
	assert.Equal(t, "+ LinkedIn: posted", lines[1])
	assert.Equal(t, "- Threads: timeout", lines[2])
}
