// Package policy orchestrates the publish fan-out: it takes due
// schedule entries, delivers each draft to its target channels
// independently, records outcomes into the circuit breaker and reports
// back to the draft store, calendar and operator.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	draftent "github.com/vadim/postline/internal/domain/draft/entity"
	schedent "github.com/vadim/postline/internal/domain/schedule/entity"
	"github.com/vadim/postline/internal/publisher"
)

// Terminal failure reasons recorded on schedule entries.
const (
	ReasonDraftNotFound = "draft not found"
	ReasonBreakerOpen   = "circuit breaker open"
)

// ErrDraftNotApproved is returned when an immediate publish is requested
// for a draft that has not passed approval.
var ErrDraftNotApproved = errors.New("draft is not approved for publishing")

// DraftStore is the slice of the draft service the policy needs.
// Interface is defined here (consumer) not in the provider package.
type DraftStore interface {
	Get(ctx context.Context, id string) (*draftent.Draft, error)
	MarkPublished(ctx context.Context, id string) error
}

// ScheduleQueue is the slice of the schedule service the policy needs.
type ScheduleQueue interface {
	GetDue(ctx context.Context) ([]schedent.Entry, error)
	MarkPublished(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
	CleanupOld(ctx context.Context, retentionDays int) (int64, error)
}

// PublisherRegistry resolves a channel publisher by name.
type PublisherRegistry interface {
	Resolve(name string) (publisher.Publisher, bool)
}

// Breaker is the automation interlock consulted before scheduled
// fan-outs and fed with every channel attempt outcome.
type Breaker interface {
	IsOpen() bool
	RecordSuccess()
	RecordFailure()
}

// Calendar is the external content-calendar collaborator. MarkDone is
// called at most once per entry, only on full-entry publish success.
type Calendar interface {
	MarkDone(ctx context.Context, entryID, postID string) error
}

// Notifier delivers the per-channel outcome summary to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Policy wires the fan-out together. Calendar and Notifier may be nil
// when the corresponding integration is not configured.
type Policy struct {
	drafts        DraftStore
	queue         ScheduleQueue
	registry      PublisherRegistry
	breaker       Breaker
	calendar      Calendar
	notifier      Notifier
	retentionDays int
	logger        *slog.Logger
}

// New creates a publish policy.
func New(
	drafts DraftStore,
	queue ScheduleQueue,
	registry PublisherRegistry,
	breaker Breaker,
	calendar Calendar,
	notifier Notifier,
	retentionDays int,
	logger *slog.Logger,
) *Policy {
	return &Policy{
		drafts:        drafts,
		queue:         queue,
		registry:      registry,
		breaker:       breaker,
		calendar:      calendar,
		notifier:      notifier,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// LegResult is the outcome of one channel attempt within a fan-out.
type LegResult struct {
	Channel string
	Label   string
	Message string
	OK      bool
}

// FanoutResult aggregates the per-channel outcomes for one draft.
type FanoutResult struct {
	Legs []LegResult
}

// AnyOK reports whether at least one channel delivery succeeded.
func (r FanoutResult) AnyOK() bool {
	for _, l := range r.Legs {
		if l.OK {
			return true
		}
	}
	return false
}

// AllOK reports whether every channel delivery succeeded.
func (r FanoutResult) AllOK() bool {
	for _, l := range r.Legs {
		if !l.OK {
			return false
		}
	}
	return len(r.Legs) > 0
}

// Summary renders the per-channel outcome lines for the operator.
func (r FanoutResult) Summary(topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Publish results for %q:\n", topic)
	for _, l := range r.Legs {
		mark := "-"
		if l.OK {
			mark = "+"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", mark, l.Label, l.Message)
	}
	return b.String()
}

// ProcessDueEntries runs one pass of the background loop: it resolves
// every due entry and then prunes old resolved entries. It implements
// the scheduler's processor interface.
func (p *Policy) ProcessDueEntries(ctx context.Context) error {
	entries, err := p.queue.GetDue(ctx)
	if err != nil {
		return fmt.Errorf("fetching due entries: %w", err)
	}

	for _, e := range entries {
		p.processEntry(ctx, e)
	}

	if _, err := p.queue.CleanupOld(ctx, p.retentionDays); err != nil {
		p.logger.Error("schedule cleanup failed", "error", err)
	}
	return nil
}

// processEntry resolves a single due entry. Failures local to one
// channel are absorbed into the summary; only a missing draft or an
// open breaker fails the whole entry, and neither attempts any channel.
func (p *Policy) processEntry(ctx context.Context, e schedent.Entry) {
	draft, err := p.drafts.Get(ctx, e.DraftID)
	if err != nil {
		// A missing draft is not transient; fail fast, no retry.
		if _, err := p.queue.MarkFailed(ctx, e.ID, ReasonDraftNotFound); err != nil {
			p.logger.Error("failed to mark entry failed", "entry_id", e.ID, "error", err)
		}
		p.logger.Warn("scheduled draft missing", "entry_id", e.ID, "draft_id", e.DraftID)
		return
	}

	if p.breaker.IsOpen() {
		// Backpressure: scheduled publishing is suspended entirely
		// while the breaker is open.
		if _, err := p.queue.MarkFailed(ctx, e.ID, ReasonBreakerOpen); err != nil {
			p.logger.Error("failed to mark entry failed", "entry_id", e.ID, "error", err)
		}
		p.logger.Warn("scheduled publish suspended", "entry_id", e.ID, "reason", ReasonBreakerOpen)
		return
	}

	res := p.fanOut(ctx, draft, e.Channels)

	// The entry completes once the fan-out completes; partial channel
	// failures are surfaced in the summary, not in the entry status.
	changed, err := p.queue.MarkPublished(ctx, e.ID)
	if err != nil {
		p.logger.Error("failed to mark entry published", "entry_id", e.ID, "error", err)
		return
	}
	if !changed {
		// Already resolved elsewhere; completion side effects ran there.
		return
	}

	if res.AnyOK() {
		if err := p.drafts.MarkPublished(ctx, draft.ID); err != nil {
			p.logger.Error("failed to mark draft published", "draft_id", draft.ID, "error", err)
		}
	}

	if res.AllOK() && draft.CalendarEntryID != "" && p.calendar != nil {
		if err := p.calendar.MarkDone(ctx, draft.CalendarEntryID, draft.ID); err != nil {
			p.logger.Error("failed to mark calendar entry done",
				"calendar_entry_id", draft.CalendarEntryID, "error", err)
		}
	}

	p.notify(ctx, draft.Topic, res)

	p.logger.Info("schedule entry resolved",
		"entry_id", e.ID,
		"draft_id", draft.ID,
		"channels", len(res.Legs),
		"succeeded", res.AnyOK(),
	)
}

// PublishNow fans an approved draft out to the given channels
// immediately, bypassing the queue. The breaker still records every
// outcome but does not gate manual publishing. Empty channels fall back
// to the draft's own targets.
func (p *Policy) PublishNow(ctx context.Context, draftID string, channels []string) (FanoutResult, error) {
	draft, err := p.drafts.Get(ctx, draftID)
	if err != nil {
		return FanoutResult{}, err
	}
	if draft.Status != draftent.DraftStatusApproved {
		return FanoutResult{}, ErrDraftNotApproved
	}

	if len(channels) == 0 {
		channels = draft.Channels
	}

	res := p.fanOut(ctx, draft, channels)
	if res.AnyOK() {
		if err := p.drafts.MarkPublished(ctx, draft.ID); err != nil {
			p.logger.Error("failed to mark draft published", "draft_id", draft.ID, "error", err)
		}
	}
	return res, nil
}

// fanOut attempts delivery to each target channel independently. An
// unknown channel is a failed leg but does not count against the
// breaker: it is a configuration bug, not a transient platform fault.
func (p *Policy) fanOut(ctx context.Context, draft *draftent.Draft, channels []string) FanoutResult {
	var res FanoutResult

	for _, name := range channels {
		pub, ok := p.registry.Resolve(name)
		if !ok {
			res.Legs = append(res.Legs, LegResult{
				Channel: name,
				Label:   name,
				Message: "unknown channel",
			})
			p.logger.Warn("no publisher for channel", "channel", name)
			continue
		}

		msg, err := pub.Publish(ctx, draft.Text, draft.ImagePath)
		if err != nil {
			p.breaker.RecordFailure()
			res.Legs = append(res.Legs, LegResult{
				Channel: name,
				Label:   pub.Label(),
				Message: truncate(err.Error(), 100),
			})
			p.logger.Error("publish failed", "channel", name, "draft_id", draft.ID, "error", err)
			continue
		}

		p.breaker.RecordSuccess()
		res.Legs = append(res.Legs, LegResult{
			Channel: name,
			Label:   pub.Label(),
			Message: truncate(msg, 100),
			OK:      true,
		})
	}

	return res
}

func (p *Policy) notify(ctx context.Context, topic string, res FanoutResult) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, res.Summary(topic)); err != nil {
		p.logger.Error("failed to send publish summary", "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
