// Package wizard sequences multi-step selection flows that end in a single
// commit against a remote service.
//
// A Wizard is safe for concurrent use. At most one commit is in flight at a
// time; a commit that completes after Reset is discarded.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrStepIncomplete = errors.New("current step is incomplete")
	ErrCommitPending  = errors.New("a commit is already in flight")
	ErrCommitFailed   = errors.New("commit failed")
	ErrStaleCommit    = errors.New("commit completed after the wizard was reset")
	ErrNothingToRetry = errors.New("no failed commit to retry")
	ErrFirstStep      = errors.New("already at the first step")
	ErrFinished       = errors.New("wizard is finished")
)

// CommitFunc submits the captured form and returns the service's receipt.
type CommitFunc[F, R any] func(ctx context.Context, form F) (R, error)

// Flow describes one wizard: its steps, gating and commit.
type Flow[F, R any] struct {
	Name string
	// Steps are the step labels. The last step commits.
	Steps []string
	// NewForm returns the initial form. Nil means the zero value.
	NewForm func() F
	// Ready reports whether the form satisfies the required selection of step.
	Ready func(step int, form F) bool
	// Hints explain a disabled Next, indexed by step.
	Hints         []string
	CommitLabel   string
	CommitTooltip string
	Commit        CommitFunc[F, R]
	// FailureMessage renders a commit error for the notification.
	FailureMessage func(err error) string
}

// Notification is a dismissible error shown after a failed commit.
type Notification struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// View is a point-in-time snapshot of a wizard.
type View[F, R any] struct {
	Flow        string        `json:"flow"`
	Step        int           `json:"step"`
	Steps       []string      `json:"steps"`
	Terminal    bool          `json:"terminal"`
	Form        F             `json:"form"`
	NextEnabled bool          `json:"next_enabled"`
	NextLabel   string        `json:"next_label"`
	Tooltip     string        `json:"tooltip"`
	BackEnabled bool          `json:"back_enabled"`
	Pending     bool          `json:"pending"`
	Error       *Notification `json:"error,omitempty"`
	Receipt     *R            `json:"receipt,omitempty"`
}

type Wizard[F, R any] struct {
	mu         sync.Mutex
	flow       Flow[F, R]
	step       int
	form       F
	pending    bool
	generation uint64
	attempts   uint64
	attempt    *attempt[F]
	receipt    *R
	notice     *Notification
}

// attempt is a captured commit payload. Retries replay it under the same number.
type attempt[F any] struct {
	number  uint64
	payload F
}

type attemptKey struct{}

// AttemptFrom returns the number of the commit attempt running under ctx.
// A retry carries the number of the attempt it replays, so the pair
// (wizard, number) identifies one logical command.
func AttemptFrom(ctx context.Context) (uint64, bool) {
	n, ok := ctx.Value(attemptKey{}).(uint64)
	return n, ok
}

func New[F, R any](flow Flow[F, R]) *Wizard[F, R] {
	w := &Wizard[F, R]{flow: flow}
	w.form = w.initialForm()
	return w
}

func (w *Wizard[F, R]) initialForm() F {
	if w.flow.NewForm != nil {
		return w.flow.NewForm()
	}
	var zero F
	return zero
}

func (w *Wizard[F, R]) last() int {
	return len(w.flow.Steps) - 1
}

func (w *Wizard[F, R]) terminal() bool {
	return w.step == len(w.flow.Steps)
}

func (w *Wizard[F, R]) ready() bool {
	if w.flow.Ready == nil {
		return true
	}
	return w.flow.Ready(w.step, w.form)
}

// View returns a snapshot of the current state.
func (w *Wizard[F, R]) View() View[F, R] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view()
}

func (w *Wizard[F, R]) view() View[F, R] {
	v := View[F, R]{
		Flow:        w.flow.Name,
		Step:        w.step,
		Steps:       append([]string(nil), w.flow.Steps...),
		Terminal:    w.terminal(),
		Form:        w.form,
		Pending:     w.pending,
		BackEnabled: w.step > 0 && !w.terminal() && !w.pending,
	}
	if w.notice != nil {
		n := *w.notice
		v.Error = &n
	}
	if w.receipt != nil {
		r := *w.receipt
		v.Receipt = &r
	}

	switch {
	case v.Terminal:
		v.NextEnabled = !w.pending
		v.NextLabel = "Reset"
		v.Tooltip = "Reset"
	case w.step == w.last():
		v.NextEnabled = !w.pending && w.ready()
		v.NextLabel = w.flow.CommitLabel
		if w.pending {
			v.NextLabel = "Processing..."
		}
		v.Tooltip = w.flow.CommitTooltip
	default:
		v.NextEnabled = !w.pending && w.ready()
		v.NextLabel = "Next"
		v.Tooltip = "Next Page"
	}
	if !v.Terminal && !w.ready() && w.step < len(w.flow.Hints) {
		v.Tooltip = w.flow.Hints[w.step]
	}
	return v
}

// Form returns a copy of the captured form.
func (w *Wizard[F, R]) Form() F {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// Update applies fn to the form. If fn fails the form is left unchanged.
func (w *Wizard[F, R]) Update(fn func(form *F) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.terminal() {
		return ErrFinished
	}
	if w.pending {
		return ErrCommitPending
	}
	next := w.form
	if err := fn(&next); err != nil {
		return err
	}
	w.form = next
	return nil
}

// Next advances one step. On the last step it commits the form, and on the
// terminal step it resets the wizard.
func (w *Wizard[F, R]) Next(ctx context.Context) (View[F, R], error) {
	w.mu.Lock()

	if w.terminal() {
		w.reset()
		v := w.view()
		w.mu.Unlock()
		return v, nil
	}
	if w.pending {
		v := w.view()
		w.mu.Unlock()
		return v, ErrCommitPending
	}
	if !w.ready() {
		v := w.view()
		w.mu.Unlock()
		return v, ErrStepIncomplete
	}
	if w.step < w.last() {
		w.step++
		v := w.view()
		w.mu.Unlock()
		return v, nil
	}

	w.attempts++
	w.attempt = &attempt[F]{number: w.attempts, payload: w.form}
	return w.commit(ctx, *w.attempt)
}

// Retry replays the payload of the last failed commit.
func (w *Wizard[F, R]) Retry(ctx context.Context) (View[F, R], error) {
	w.mu.Lock()

	if w.pending {
		v := w.view()
		w.mu.Unlock()
		return v, ErrCommitPending
	}
	if w.notice == nil || w.attempt == nil {
		v := w.view()
		w.mu.Unlock()
		return v, ErrNothingToRetry
	}
	return w.commit(ctx, *w.attempt)
}

// commit must be called with w.mu held; it releases the lock.
func (w *Wizard[F, R]) commit(ctx context.Context, a attempt[F]) (View[F, R], error) {
	w.pending = true
	w.notice = nil
	generation := w.generation
	w.mu.Unlock()

	receipt, err := w.run(context.WithValue(ctx, attemptKey{}, a.number), a.payload)

	w.mu.Lock()
	defer w.mu.Unlock()

	if generation != w.generation {
		return w.view(), ErrStaleCommit
	}
	w.pending = false

	if err != nil {
		w.notice = &Notification{Message: w.failureMessage(err), Retryable: true}
		return w.view(), fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	w.receipt = &receipt
	w.step = len(w.flow.Steps)
	return w.view(), nil
}

// run calls the flow's commit, turning a panic into a failed commit so the
// wizard never stays pending.
func (w *Wizard[F, R]) run(ctx context.Context, form F) (receipt R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("commit panicked: %v", r)
		}
	}()
	return w.flow.Commit(ctx, form)
}

func (w *Wizard[F, R]) failureMessage(err error) string {
	if w.flow.FailureMessage != nil {
		return w.flow.FailureMessage(err)
	}
	return err.Error()
}

// Back returns to the previous step, keeping every captured selection.
func (w *Wizard[F, R]) Back() (View[F, R], error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.terminal() {
		return w.view(), ErrFinished
	}
	if w.pending {
		return w.view(), ErrCommitPending
	}
	if w.step == 0 {
		return w.view(), ErrFirstStep
	}
	w.step--
	return w.view(), nil
}

// DismissError hides the current notification. The failed payload can no
// longer be retried afterwards.
func (w *Wizard[F, R]) DismissError() View[F, R] {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.notice = nil
	return w.view()
}

// Reset clears every selection and returns to the first step. A commit still
// in flight will be discarded when it completes.
func (w *Wizard[F, R]) Reset() View[F, R] {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.reset()
	return w.view()
}

func (w *Wizard[F, R]) reset() {
	w.generation++
	w.step = 0
	w.form = w.initialForm()
	w.pending = false
	w.attempt = nil
	w.receipt = nil
	w.notice = nil
}
