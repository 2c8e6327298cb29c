package tracking

import "context"

// Subscription is an opaque handle returned by Provider.Watch.
type Subscription interface{}

// Provider is the platform location capability the tracker consumes.
//
// Watch delivers fixes and errors asynchronously; callbacks for one
// subscription must not overlap. Clear must return without waiting for
// in-flight callbacks, since the tracker may call it from inside one.
type Provider interface {
	Available() bool
	Permission(ctx context.Context) PermissionState
	Watch(onFix func(Fix), onError func(error), opts WatchOptions) (Subscription, error)
	Clear(sub Subscription)
}

// Observer receives tracker events. Calls happen outside the tracker lock, so
// events from a provider callback and a concurrent Stop or Reset can arrive
// out of order; observers that keep derived state should drop snapshots whose
// Seq is lower than the last one they applied.
type Observer interface {
	FixDecided(fix Fix, decision Decision, snap Snapshot)
	StateChanged(snap Snapshot)
}
