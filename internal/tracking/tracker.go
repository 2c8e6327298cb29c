package tracking

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/etsibreadud/qbloco-app/internal/shared/geo"
)

// Acceptance pipeline thresholds.
const (
	MaxAccuracyM        = 60.0
	DuplicateEpsilonDeg = 1e-7
	// 6 m/s is roughly 21.6 km/h, fast running in a crowd. Anything quicker
	// is treated as a multipath jump.
	MaxSpeedMps      = 6.0
	MinDisplacementM = 6.0
	minElapsed       = time.Second
)

const defaultProbeTimeout = 2 * time.Second

type Option func(*Tracker)

func WithWatchOptions(opts WatchOptions) Option {
	return func(t *Tracker) { t.opts = opts }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithObserver(o Observer) Option {
	return func(t *Tracker) {
		if o != nil {
			t.observers = append(t.observers, o)
		}
	}
}

// WithProbeTimeout bounds the permission probe done by Start. Non-positive
// values keep the default.
func WithProbeTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.probeTimeout = d
		}
	}
}

// Tracker owns one live tracking session: the provider subscription, the
// filtered path and the derived distance.
type Tracker struct {
	provider     Provider
	opts         WatchOptions
	now          func() time.Time
	probeTimeout time.Duration
	observers    []Observer

	mu        sync.Mutex
	state     State
	lastErr   *Error
	points    []Fix
	distanceM float64

	// Filter memory. Kept apart from points so that the jump detector's
	// baseline only ever moves on an accepted fix.
	lastAccepted     *Fix
	lastAcceptedTime time.Time

	sub Subscription
	// gen changes whenever the subscription is replaced or torn down;
	// callbacks carrying an older value are dropped.
	gen uint64
	seq uint64
}

func NewTracker(provider Provider, opts ...Option) *Tracker {
	t := &Tracker{
		provider:     provider,
		opts:         DefaultWatchOptions(),
		now:          time.Now,
		probeTimeout: defaultProbeTimeout,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins a fresh session. Prior points and errors are discarded. When
// the location capability is missing or permission is denied the tracker
// moves to StateError and the recorded *Error is returned; Start never
// returns without either subscribing or recording an error.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	old := t.detachLocked()
	t.points = nil
	t.distanceM = 0
	t.lastErr = nil
	t.state = StateIdle
	t.mu.Unlock()
	t.clear(old)

	if t.provider == nil || !t.provider.Available() {
		return t.fail(&Error{Kind: KindCapabilityUnavailable, Message: msgUnavailable})
	}
	if t.probe(ctx) == PermissionDenied {
		return t.fail(&Error{Kind: KindPermissionDenied, Message: msgProbeDenied})
	}

	// A concurrent Start may have subscribed and collected points while this
	// one was probing; the later subscription replaces it.
	t.mu.Lock()
	stale := t.detachLocked()
	t.points = nil
	t.distanceM = 0
	t.lastErr = nil
	gen := t.gen
	t.state = StateTracking
	t.mu.Unlock()
	t.clear(stale)

	sub, err := t.provider.Watch(
		func(fix Fix) { t.onFix(gen, fix) },
		func(err error) { t.onError(gen, err) },
		t.opts,
	)

	t.mu.Lock()
	if t.gen != gen {
		// Stopped, reset or failed while Watch was running.
		lastErr := t.lastErr
		t.mu.Unlock()
		if err == nil {
			t.clear(sub)
		}
		if lastErr != nil {
			return lastErr
		}
		return nil
	}
	if err != nil {
		old, snap, te := t.failLocked(translate(err))
		t.mu.Unlock()
		t.clear(old)
		t.afterFail(snap, te)
		return te
	}
	t.sub = sub
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notifyState(snap)
	return nil
}

// Stop ends the subscription but keeps the accumulated path so the caller can
// read the result. Safe to call in any state.
func (t *Tracker) Stop() {
	t.mu.Lock()
	old := t.detachLocked()
	changed := t.state != StateIdle
	t.state = StateIdle
	t.lastErr = nil
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.clear(old)
	if changed {
		t.notifyState(snap)
	}
}

// Reset ends the subscription and discards the path and any error.
func (t *Tracker) Reset() {
	t.mu.Lock()
	old := t.detachLocked()
	changed := t.state != StateIdle || len(t.points) > 0
	t.state = StateIdle
	t.lastErr = nil
	t.points = nil
	t.distanceM = 0
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.clear(old)
	if changed {
		t.notifyState(snap)
	}
}

// Ingest runs one fix through the acceptance pipeline. It is the only writer
// of the accepted path; provider callbacks funnel through it.
func (t *Tracker) Ingest(fix Fix) Decision {
	t.mu.Lock()
	decision, fix := t.ingestLocked(fix)
	snap, notify := t.observedSnapshotLocked()
	t.mu.Unlock()

	if notify {
		t.notifyFix(fix, decision, snap)
	}
	return decision
}

func (t *Tracker) onFix(gen uint64, fix Fix) {
	t.mu.Lock()
	decision := DecisionIgnored
	if gen == t.gen {
		decision, fix = t.ingestLocked(fix)
	}
	snap, notify := t.observedSnapshotLocked()
	t.mu.Unlock()

	if notify {
		t.notifyFix(fix, decision, snap)
	}
}

func (t *Tracker) onError(gen uint64, err error) {
	t.mu.Lock()
	if gen != t.gen || t.state != StateTracking {
		t.mu.Unlock()
		return
	}
	old, snap, te := t.failLocked(translate(err))
	t.mu.Unlock()

	t.clear(old)
	t.afterFail(snap, te)
}

func (t *Tracker) ingestLocked(fix Fix) (Decision, Fix) {
	if t.state != StateTracking {
		return DecisionIgnored, fix
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = t.now()
	}

	// Fixes without a reported accuracy pass this gate. This is permissive:
	// devices that never report accuracy are not quality-filtered at all.
	if fix.Accuracy != nil && *fix.Accuracy > MaxAccuracyM {
		return DecisionRejectedAccuracy, fix
	}

	n := len(t.points)
	if n > 0 {
		last := t.points[n-1]
		if math.Abs(last.Lat-fix.Lat) < DuplicateEpsilonDeg && math.Abs(last.Lng-fix.Lng) < DuplicateEpsilonDeg {
			return DecisionRejectedDuplicate, fix
		}
	}

	ref, refTime := t.lastAccepted, t.lastAcceptedTime
	if ref == nil && n > 0 {
		ref, refTime = &t.points[n-1], t.points[n-1].Timestamp
	}
	if ref != nil {
		elapsed := fix.Timestamp.Sub(refTime)
		if elapsed < minElapsed {
			elapsed = minElapsed
		}
		d := geo.DistanceMeters(ref.Coordinate(), fix.Coordinate())
		if d/elapsed.Seconds() > MaxSpeedMps {
			return DecisionRejectedSpeed, fix
		}
		if d < MinDisplacementM {
			return DecisionRejectedJitter, fix
		}
	}

	if n > 0 {
		t.distanceM += geo.DistanceMeters(t.points[n-1].Coordinate(), fix.Coordinate())
	}
	t.points = append(t.points, fix)
	accepted := fix
	t.lastAccepted = &accepted
	t.lastAcceptedTime = fix.Timestamp
	return DecisionAccepted, fix
}

// detachLocked invalidates the current subscription and filter memory and
// hands back the handle for the caller to clear outside the lock.
func (t *Tracker) detachLocked() Subscription {
	t.gen++
	old := t.sub
	t.sub = nil
	t.lastAccepted = nil
	t.lastAcceptedTime = time.Time{}
	return old
}

func (t *Tracker) failLocked(te *Error) (Subscription, Snapshot, *Error) {
	old := t.detachLocked()
	t.state = StateError
	t.lastErr = te
	return old, t.snapshotLocked(), te
}

func (t *Tracker) fail(te *Error) error {
	t.mu.Lock()
	old, snap, te := t.failLocked(te)
	t.mu.Unlock()

	t.clear(old)
	t.afterFail(snap, te)
	return te
}

func (t *Tracker) afterFail(snap Snapshot, te *Error) {
	log.Printf("tracker error (%s): %s", te.Kind, te.Message)
	t.notifyState(snap)
}

func (t *Tracker) clear(sub Subscription) {
	if sub != nil && t.provider != nil {
		t.provider.Clear(sub)
	}
}

// probe asks the provider for its permission state without letting a slow or
// hung probe block Start. Anything other than an explicit denial proceeds.
func (t *Tracker) probe(ctx context.Context) PermissionState {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, t.probeTimeout)
	defer cancel()

	result := make(chan PermissionState, 1)
	go func() {
		result <- t.provider.Permission(ctx)
	}()

	select {
	case p := <-result:
		return p
	case <-ctx.Done():
		return PermissionUnknown
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastError is empty unless the tracker is in StateError.
func (t *Tracker) LastError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastErr == nil {
		return ""
	}
	return t.lastErr.Message
}

func (t *Tracker) Points() []Fix {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Fix(nil), t.points...)
}

func (t *Tracker) DistanceMeters() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.distanceM
}

func (t *Tracker) snapshotLocked() Snapshot {
	t.seq++
	snap := Snapshot{
		Seq:           t.seq,
		State:         t.state,
		Points:        append([]Fix{}, t.points...),
		DistanceM:     t.distanceM,
		DistanceLabel: geo.FormatDistance(t.distanceM),
	}
	if t.lastErr != nil {
		snap.LastError = t.lastErr.Message
		snap.ErrorKind = string(t.lastErr.Kind)
	}
	return snap
}

func (t *Tracker) observedSnapshotLocked() (Snapshot, bool) {
	if len(t.observers) == 0 {
		return Snapshot{}, false
	}
	return t.snapshotLocked(), true
}

func (t *Tracker) notifyFix(fix Fix, decision Decision, snap Snapshot) {
	for _, o := range t.observers {
		o.FixDecided(fix, decision, snap)
	}
}

func (t *Tracker) notifyState(snap Snapshot) {
	for _, o := range t.observers {
		o.StateChanged(snap)
	}
}
