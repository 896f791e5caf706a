// Package session runs indexing sessions: one background scan at a time
// that enumerates files, batches them into a staging catalog and publishes
// a snapshot, reporting progress and a single completion event.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/seek/pkg/seek/events"
	"github.com/jamesainslie/seek/pkg/seek/history"
	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/metrics"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

// ErrNoSession is returned by Cancel when no matching session is running.
var ErrNoSession = errors.New("no such session")

// Handle identifies a running session.
type Handle struct {
	ID      string            `json:"id"`
	Request types.ScanRequest `json:"request"`
	Started time.Time         `json:"started"`

	cancel  context.CancelFunc
	done    chan struct{}
	outcome types.Outcome
}

// Cancel requests cooperative cancellation. The session stops at its next
// checkpoint and still reports an outcome.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed once the outcome is available.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the session ends or ctx is done.
func (h *Handle) Wait(ctx context.Context) (types.Outcome, error) {
	select {
	case <-h.done:
		return h.outcome, nil
	case <-ctx.Done():
		return types.Outcome{}, ctx.Err()
	}
}

// Status is a snapshot of the manager's state.
type Status struct {
	State    types.SessionState `json:"state"`
	Session  *Handle            `json:"session,omitempty"`
	Progress *types.Progress    `json:"progress,omitempty"`
	Last     *types.Outcome     `json:"last,omitempty"`
}

// Manager owns the session state machine. It is safe for concurrent use.
type Manager struct {
	opts   Options
	events *events.Broadcaster
	logger *logging.Logger

	mu       sync.Mutex
	state    types.SessionState
	active   *Handle
	progress *types.Progress
	last     *types.Outcome
	wg       sync.WaitGroup
}

// NewManager returns an idle Manager.
func NewManager(opts Options) *Manager {
	opts.setDefaults()
	return &Manager{
		opts:   opts,
		events: events.New(),
		logger: logging.Get("session"),
		state:  types.StateIdle,
	}
}

// Start validates req and runs it in the background. It fails with
// types.ErrSessionActive while another session is running. The session
// ends when ctx is cancelled or Cancel is called.
func (m *Manager) Start(ctx context.Context, req types.ScanRequest) (*Handle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrSessionActive, m.active.ID)
	}

	sctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ID:      uuid.NewString(),
		Request: req,
		Started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.active = h
	m.state = types.StateRunning
	m.progress = nil
	metrics.SessionActive.Set(1)

	m.logger.Info("session started", "id", h.ID, "strategy", req.Strategy, "targets", req.Targets)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.finish(h, m.run(sctx, h))
	}()
	return h, nil
}

// Cancel cancels the running session with the given id, or whichever
// session is running when id is empty.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || (id != "" && m.active.ID != id) {
		return fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	m.logger.Info("cancellation requested", "id", m.active.ID)
	m.active.Cancel()
	return nil
}

// Subscribe returns a subscription to the events of one session, or of
// every session when sessionID is empty.
func (m *Manager) Subscribe(sessionID string) *events.Subscriber {
	return m.events.Subscribe(sessionID)
}

// Unsubscribe ends a subscription.
func (m *Manager) Unsubscribe(sub *events.Subscriber) {
	if sub != nil {
		m.events.Unsubscribe(sub.ID)
	}
}

// Status returns the current state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state, Session: m.active, Progress: m.progress, Last: m.last}
}

// Close cancels any running session, waits for it to wind down through the
// normal cancellation path and closes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.active != nil {
		m.active.Cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.events.Close()
}

func (m *Manager) report(h *Handle, p types.Progress) {
	m.mu.Lock()
	m.progress = &p
	m.mu.Unlock()

	if p.Kind == types.ProgressSkipped {
		metrics.VolumesSkipped.Inc()
	}
	m.events.Progress(h.ID, p)
}

// finish records the outcome, emits the completion event and returns the
// manager to idle.
func (m *Manager) finish(h *Handle, o types.Outcome) {
	o.SessionID = h.ID
	o.Elapsed = time.Since(h.Started)
	h.outcome = o

	metrics.ObserveSession(h.Request.Strategy.String(), o.State.String(), o.Elapsed, o.Published())
	metrics.SessionActive.Set(0)

	if o.Published() && m.opts.Preference != nil {
		if err := m.opts.Preference.Save(o.SnapshotPath); err != nil {
			m.logger.Warn("saving catalog preference failed", "error", err)
		}
	}
	if m.opts.History != nil {
		if err := m.opts.History.Append(history.NewEntry(h.Request, o)); err != nil {
			m.logger.Warn("recording history failed", "error", err)
		}
	}

	logArgs := []any{"id", h.ID, "state", o.State, "records", o.Records, "elapsed", o.Elapsed.Round(time.Millisecond)}
	switch o.State {
	case types.StateFailed:
		m.logger.Error("session failed", append(logArgs, "error", o.Err)...)
	default:
		m.logger.Info("session finished", append(logArgs, "snapshot", o.SnapshotPath)...)
	}

	m.mu.Lock()
	m.state = o.State
	m.mu.Unlock()

	m.events.Completed(o)

	m.mu.Lock()
	m.last = &o
	m.active = nil
	m.state = types.StateIdle
	m.mu.Unlock()

	close(h.done)
}
