// Package moderation is the recipe approval state machine. It plans transitions;
// the store applies them as a single conditional update keyed by (id, from).
package moderation

import (
	"fmt"
	"strings"
	"time"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
)

// Event triggers a transition.
type Event string

const (
	EventSubmit    Event = "submit"
	EventPublish   Event = "publish"
	EventApprove   Event = "approve"
	EventReject    Event = "reject"
	EventResubmit  Event = "resubmit"
	EventUnpublish Event = "unpublish"
	EventReopen    Event = "reopen"
)

// Events lists every event in table order.
var Events = []Event{EventSubmit, EventPublish, EventApprove, EventReject, EventResubmit, EventUnpublish, EventReopen}

// ParseEvent maps a path segment to an Event.
func ParseEvent(s string) (Event, bool) {
	e := Event(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Events {
		if e == known {
			return e, true
		}
	}
	return "", false
}

// Rule is one row of the transition table.
type Rule struct {
	From  model.ApprovalStatus
	To    model.ApprovalStatus
	Event Event
	Guard policy.Guard
	// Publish sets is_published when non-nil. Nil leaves the author's intent alone.
	Publish *bool
}

var (
	yes = true
	no  = false
)

var rules = []Rule{
	{From: model.StatusDraft, To: model.StatusPending, Event: EventSubmit, Guard: policy.GuardAuthor, Publish: &yes},
	{From: model.StatusDraft, To: model.StatusApproved, Event: EventPublish, Guard: policy.GuardModerator, Publish: &yes},
	{From: model.StatusPending, To: model.StatusApproved, Event: EventApprove, Guard: policy.GuardModerator},
	{From: model.StatusPending, To: model.StatusRejected, Event: EventReject, Guard: policy.GuardModerator},
	{From: model.StatusRejected, To: model.StatusPending, Event: EventResubmit, Guard: policy.GuardAuthor, Publish: &yes},
	{From: model.StatusApproved, To: model.StatusDraft, Event: EventUnpublish, Guard: policy.GuardAuthorOrModerator, Publish: &no},
	{From: model.StatusApproved, To: model.StatusPending, Event: EventReopen, Guard: policy.GuardModerator},
}

// Rules returns a copy of the transition table.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// Next returns the rule for ev from state from.
func Next(from model.ApprovalStatus, ev Event) (Rule, bool) {
	for _, r := range rules {
		if r.From == from && r.Event == ev {
			return r, true
		}
	}
	return Rule{}, false
}

// Guarder evaluates transition guards.
type Guarder interface {
	Check(g policy.Guard, c model.Caller, r *model.Recipe) error
}

// Transition is the full effect of one event. Every field the store writes is
// decided here so that a reader observing To also observes the timestamps.
type Transition struct {
	ID    string
	Event Event
	From  model.ApprovalStatus
	To    model.ApprovalStatus

	IsPublished *bool

	// ApprovedAt and ApprovedBy are written as given; both nil/empty clears them.
	ApprovedAt *time.Time
	ApprovedBy string

	// RejectionReason is written as given; empty clears it.
	RejectionReason string

	Now time.Time
}

// Plan validates ev against r's current state and c's guard and returns the transition.
// Unknown events and states without a matching row fail with InvalidTransition.
func Plan(g Guarder, c model.Caller, r *model.Recipe, ev Event, reason string, now time.Time) (Transition, error) {
	rule, ok := Next(r.ApprovalStatus, ev)
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s from %s", errs.ErrInvalidTransition, ev, r.ApprovalStatus)
	}
	if err := g.Check(rule.Guard, c, r); err != nil {
		return Transition{}, err
	}
	reason = strings.TrimSpace(reason)
	if ev == EventReject && reason == "" {
		return Transition{}, errs.Invalid("reason", "required when rejecting")
	}

	now = now.UTC()
	t := Transition{
		ID:          r.ID,
		Event:       ev,
		From:        rule.From,
		To:          rule.To,
		IsPublished: rule.Publish,
		Now:         now,
	}
	switch rule.To {
	case model.StatusApproved:
		t.ApprovedAt = &now
		t.ApprovedBy = c.UserID
	case model.StatusRejected:
		t.RejectionReason = reason
	}
	return t, nil
}

// Apply writes t onto r in memory. It fails with InvalidTransition when r is no
// longer in t.From, mirroring the store's conditional update.
func (t Transition) Apply(r *model.Recipe) error {
	if r.ApprovalStatus != t.From {
		return fmt.Errorf("%w: %s expected %s, found %s", errs.ErrInvalidTransition, t.Event, t.From, r.ApprovalStatus)
	}
	r.ApprovalStatus = t.To
	if t.IsPublished != nil {
		r.IsPublished = *t.IsPublished
	}
	r.ApprovedAt = t.ApprovedAt
	r.ApprovedBy = t.ApprovedBy
	r.RejectionReason = t.RejectionReason
	r.UpdatedAt = t.Now
	r.Ver++
	return nil
}
