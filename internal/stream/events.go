package stream

import "github.com/etsibreadud/qbloco-app/internal/tracking"

const (
	EventPoint = "point"
	EventState = "state"
)

// Event is the JSON message pushed to live clients. Point events carry only
// the new fix and the running totals, not the whole path. Seq orders events
// from the same tracker.
type Event struct {
	Seq           uint64         `json:"seq"`
	Type          string         `json:"type"`
	State         tracking.State `json:"state"`
	LastError     string         `json:"last_error,omitempty"`
	Fix           *tracking.Fix  `json:"fix,omitempty"`
	PointCount    int            `json:"point_count"`
	DistanceM     float64        `json:"distance_m"`
	DistanceLabel string         `json:"distance_label"`
}

func eventFromSnapshot(kind string, snap tracking.Snapshot) Event {
	return Event{
		Seq:           snap.Seq,
		Type:          kind,
		State:         snap.State,
		LastError:     snap.LastError,
		PointCount:    len(snap.Points),
		DistanceM:     snap.DistanceM,
		DistanceLabel: snap.DistanceLabel,
	}
}

type trackerObserver struct {
	hub   *Hub
	topic string
}

// Observer publishes accepted points and state changes of a tracker on topic.
// Rejected fixes are not streamed.
func (h *Hub) Observer(topic string) tracking.Observer {
	return trackerObserver{hub: h, topic: topic}
}

func (o trackerObserver) FixDecided(fix tracking.Fix, decision tracking.Decision, snap tracking.Snapshot) {
	if decision != tracking.DecisionAccepted {
		return
	}
	ev := eventFromSnapshot(EventPoint, snap)
	ev.Fix = &fix
	o.hub.Publish(o.topic, ev)
}

func (o trackerObserver) StateChanged(snap tracking.Snapshot) {
	o.hub.Publish(o.topic, eventFromSnapshot(EventState, snap))
}
