package moderation

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/limiter"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
)

func newGuarder(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New(limiter.NewMemory())
	require.NoError(t, err)
	return p
}

func draft() *model.Recipe {
	return &model.Recipe{
		ID: "r1", AuthorID: "u1", ApprovalStatus: model.StatusDraft, DefaultLanguage: model.LangDA,
		Translations: map[model.Lang]model.Translation{model.LangDA: {Name: "Jordbærslush"}},
	}
}

var (
	author = model.Caller{UserID: "u1", Role: model.RolePro}
	editor = model.Caller{UserID: "e1", Role: model.RoleEditor}
	admin  = model.Caller{UserID: "a1", Role: model.RoleAdmin}
)

func step(t *testing.T, g Guarder, c model.Caller, r *model.Recipe, ev Event, reason string) {
	t.Helper()
	tr, err := Plan(g, c, r, ev, reason, time.Now())
	require.NoError(t, err)
	require.NoError(t, tr.Apply(r))
}

func TestLifecycle_AuthorIntentPreserved(t *testing.T) {
	t.Parallel()
	g := newGuarder(t)
	r := draft()

	step(t, g, author, r, EventSubmit, "")
	require.Equal(t, model.StatusPending, r.ApprovalStatus)
	require.True(t, r.IsPublished)
	require.False(t, r.IsExternallyVisible())

	step(t, g, editor, r, EventReject, "  too sweet ")
	require.Equal(t, model.StatusRejected, r.ApprovalStatus)
	require.Equal(t, "too sweet", r.RejectionReason)

	step(t, g, author, r, EventResubmit, "")
	require.Equal(t, model.StatusPending, r.ApprovalStatus)
	require.Empty(t, r.RejectionReason)

	step(t, g, editor, r, EventApprove, "")
	require.Equal(t, model.StatusApproved, r.ApprovalStatus)
	require.True(t, r.IsPublished)
	require.True(t, r.IsExternallyVisible())
	require.NotNil(t, r.ApprovedAt)
	require.Equal(t, "e1", r.ApprovedBy)
	require.Equal(t, time.UTC, r.ApprovedAt.Location())
	require.NoError(t, r.Validate())

	step(t, g, editor, r, EventReopen, "")
	require.Equal(t, model.StatusPending, r.ApprovalStatus)
	require.Nil(t, r.ApprovedAt)
	require.Empty(t, r.ApprovedBy)

	step(t, g, admin, r, EventApprove, "")
	step(t, g, author, r, EventUnpublish, "")
	require.Equal(t, model.StatusDraft, r.ApprovalStatus)
	require.False(t, r.IsPublished)
}

func TestApprove_DoesNotFlipPublished(t *testing.T) {
	t.Parallel()
	g := newGuarder(t)
	r := draft()
	r.ApprovalStatus = model.StatusPending
	r.IsPublished = false

	step(t, g, editor, r, EventApprove, "")
	require.Equal(t, model.StatusApproved, r.ApprovalStatus)
	require.False(t, r.IsPublished)
	require.False(t, r.IsExternallyVisible())
}

func TestPublish_AutoApprovePath(t *testing.T) {
	t.Parallel()
	g := newGuarder(t)

	r := draft()
	_, err := Plan(g, author, r, EventPublish, "", time.Now())
	require.ErrorIs(t, err, errs.ErrForbidden)

	step(t, g, editor, r, EventPublish, "")
	require.True(t, r.IsExternallyVisible())
	require.Equal(t, "e1", r.ApprovedBy)
}

func TestGuards(t *testing.T) {
	t.Parallel()
	g := newGuarder(t)
	stranger := model.Caller{UserID: "u2", Role: model.RolePro}

	r := draft()
	_, err := Plan(g, stranger, r, EventSubmit, "", time.Now())
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = Plan(g, model.Anonymous("d"), r, EventSubmit, "", time.Now())
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)

	r.ApprovalStatus = model.StatusPending
	_, err = Plan(g, author, r, EventApprove, "", time.Now())
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = Plan(g, editor, r, EventReject, " ", time.Now())
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestInvalidTransitions(t *testing.T) {
	t.Parallel()
	g := newGuarder(t)

	allowed := map[model.ApprovalStatus]map[Event]bool{}
	for _, rule := range Rules() {
		if allowed[rule.From] == nil {
			allowed[rule.From] = map[Event]bool{}
		}
		allowed[rule.From][rule.Event] = true
	}
	for _, st := range []model.ApprovalStatus{model.StatusDraft, model.StatusPending, model.StatusApproved, model.StatusRejected} {
		for _, ev := range Events {
			if allowed[st][ev] {
				continue
			}
			r := draft()
			r.ApprovalStatus = st
			_, err := Plan(g, admin, r, ev, "reason", time.Now())
			require.ErrorIs(t, err, errs.ErrInvalidTransition, "%s from %s", ev, st)
		}
	}
	_, err := Plan(g, admin, draft(), Event("archive"), "", time.Now())
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestApply_StaleFrom(t *testing.T) {
	t.Parallel()
	g := newGuarder(t)
	r := draft()
	r.ApprovalStatus = model.StatusPending

	tr, err := Plan(g, editor, r, EventApprove, "", time.Now())
	require.NoError(t, err)
	require.NoError(t, tr.Apply(r))
	require.ErrorIs(t, tr.Apply(r), errs.ErrInvalidTransition)
}

// Random event sequences by an all-powerful author only ever land in table states
// and keep the approval invariants.
func TestRandomSequences_StayInTable(t *testing.T) {
	t.Parallel()
	g := newGuarder(t)
	rng := rand.New(rand.NewSource(42))

	targets := map[model.ApprovalStatus]bool{model.StatusDraft: true}
	for _, rule := range Rules() {
		targets[rule.To] = true
	}

	actor := model.Caller{UserID: "u1", Role: model.RoleAdmin}
	for run := 0; run < 200; run++ {
		r := draft()
		for i := 0; i < 30; i++ {
			ev := Events[rng.Intn(len(Events))]
			tr, err := Plan(g, actor, r, ev, "reason", time.Now())
			if err != nil {
				require.ErrorIs(t, err, errs.ErrInvalidTransition)
				continue
			}
			require.NoError(t, tr.Apply(r))
			require.True(t, targets[r.ApprovalStatus])
			if r.ApprovalStatus == model.StatusApproved {
				require.NotNil(t, r.ApprovedAt)
				require.NotEmpty(t, r.ApprovedBy)
			} else {
				require.Nil(t, r.ApprovedAt)
			}
		}
	}
}

func TestConcurrentApply_OneWinner(t *testing.T) {
	t.Parallel()
	g := newGuarder(t)
	r := draft()
	r.ApprovalStatus = model.StatusPending

	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, c := range []model.Caller{editor, admin} {
		tr, err := Plan(g, c, r, EventApprove, "", time.Now())
		require.NoError(t, err)
		wg.Add(1)
		go func(i int, tr Transition) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			results[i] = tr.Apply(r)
		}(i, tr)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	}
	require.Equal(t, 1, wins)
}

func TestParseEvent(t *testing.T) {
	t.Parallel()
	ev, ok := ParseEvent(" Approve ")
	require.True(t, ok)
	require.Equal(t, EventApprove, ev)
	_, ok = ParseEvent("archive")
	require.False(t, ok)
}
