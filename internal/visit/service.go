package visit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/etsibreadud/qbloco-app/internal/db"
	"github.com/etsibreadud/qbloco-app/internal/shared/geo"

	"github.com/google/uuid"
)

const statsLimit = 50

var (
	ErrMissingFields = errors.New("user_id and bloco_id required")
	ErrVisitActive   = errors.New("a visit is already in progress; check out first")
	ErrNoActiveVisit = errors.New("no visit in progress")
	ErrVisitNotFound = errors.New("visit not found")
	ErrNoStorage     = errors.New("visit log storage not configured")
)

// Tracker is the part of the live tracker a visit drives.
type Tracker interface {
	Start(ctx context.Context) error
	Stop()
	DistanceMeters() float64
}

// Service records check-ins and check-outs for the agent's single live
// tracker, so at most one visit is in progress at a time.
type Service struct {
	db      db.Querier
	tracker Tracker
	now     func() time.Time

	// opMu serializes check-in and check-out, including the tracker calls,
	// which may wait on the permission probe. mu only guards active, so
	// Active never waits behind a check-in.
	opMu   sync.Mutex
	mu     sync.Mutex
	active *Visit
}

func NewService(q db.Querier, tracker Tracker) *Service {
	return &Service{db: q, tracker: tracker, now: time.Now}
}

// CheckIn stores an in-progress visit and starts the tracker. When the
// tracker cannot start, the visit is still returned together with the
// tracker's *tracking.Error so the caller can surface it.
func (s *Service) CheckIn(ctx context.Context, userID, blockID string) (Visit, error) {
	if userID == "" || blockID == "" {
		return Visit{}, ErrMissingFields
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if _, ok := s.Active(); ok {
		return Visit{}, ErrVisitActive
	}
	if s.db == nil {
		return Visit{}, ErrNoStorage
	}

	v := Visit{
		ID:            uuid.NewString(),
		UserID:        userID,
		BlockID:       blockID,
		StartedAt:     s.now().UTC(),
		Status:        StatusInProgress,
		DistanceLabel: geo.FormatDistance(0),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO checkin_sessions (id, user_id, bloco_id, started_at, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING started_at
	`, v.ID, v.UserID, v.BlockID, v.StartedAt, v.Status)
	if err := row.Scan(&v.StartedAt); err != nil {
		return Visit{}, fmt.Errorf("record check-in: %w", err)
	}
	s.setActive(&v)

	if err := s.tracker.Start(ctx); err != nil {
		return v, err
	}
	return v, nil
}

// CheckOut stops the tracker and stores the walked distance in whole meters.
// On a storage error the visit stays active so the check-out can be retried.
func (s *Service) CheckOut(ctx context.Context, userID string) (Visit, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	v, ok := s.Active()
	if !ok || v.UserID != userID {
		return Visit{}, ErrNoActiveVisit
	}

	s.tracker.Stop()

	ended := s.now().UTC()
	v.EndedAt = &ended
	v.DistanceM = math.Round(s.tracker.DistanceMeters())
	v.DistanceLabel = geo.FormatDistance(v.DistanceM)
	v.Status = StatusCompleted

	tag, err := s.db.Exec(ctx, `
		UPDATE checkin_sessions
		SET ended_at=$3, distance_m=$4, status='completed'
		WHERE id=$1 AND user_id=$2
	`, v.ID, v.UserID, ended, v.DistanceM)
	if err != nil {
		return Visit{}, fmt.Errorf("record check-out: %w", err)
	}
	s.setActive(nil)
	if tag.RowsAffected() == 0 {
		return Visit{}, ErrVisitNotFound
	}
	return v, nil
}

func (s *Service) Active() (Visit, bool) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return Visit{}, false
	}
	v := *s.active
	s.mu.Unlock()

	v.DistanceM = s.tracker.DistanceMeters()
	v.DistanceLabel = geo.FormatDistance(v.DistanceM)
	return v, true
}

func (s *Service) setActive(v *Visit) {
	s.mu.Lock()
	s.active = v
	s.mu.Unlock()
}

// Stats summarises the user's latest completed visits, newest first.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	if s.db == nil {
		return Stats{}, ErrNoStorage
	}
	// Completed visits are filtered before the limit, so the stats cover the
	// latest 50 completed visits rather than completed ones among the latest 50.
	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.bloco_id, s.started_at, s.ended_at, COALESCE(s.distance_m,0)::float8,
		       COALESCE(b.name,''), COALESCE(b.date::text,'')
		FROM checkin_sessions s
		LEFT JOIN blocos b ON b.id = s.bloco_id
		WHERE s.user_id=$1 AND s.ended_at IS NOT NULL
		ORDER BY s.started_at DESC
		LIMIT $2
	`, userID, statsLimit)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	stats := Stats{Visits: []Visit{}}
	for rows.Next() {
		v := Visit{UserID: userID}
		var ended time.Time
		if err := rows.Scan(&v.ID, &v.BlockID, &v.StartedAt, &ended, &v.DistanceM, &v.BlockName, &v.BlockDate); err != nil {
			return Stats{}, err
		}
		v.EndedAt = &ended
		if v.BlockName == "" {
			v.BlockName = "Bloco"
		}
		v.Status = StatusCompleted
		v.DistanceLabel = geo.FormatDistance(v.DistanceM)
		stats.TotalDistanceM += v.DistanceM
		stats.Visits = append(stats.Visits, v)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	stats.TotalVisits = len(stats.Visits)
	stats.TotalDistanceLabel = geo.FormatDistance(stats.TotalDistanceM)
	stats.Badges = Badges(stats.TotalVisits, stats.TotalDistanceM)
	return stats, nil
}

// Badges lists the milestones reached for a visit count and total distance.
func Badges(visits int, distanceM float64) []string {
	badges := []string{}
	if visits >= 1 {
		badges = append(badges, "First bloco")
	}
	if visits >= 3 {
		badges = append(badges, "Three blocos")
	}
	if visits >= 5 {
		badges = append(badges, "Five blocos")
	}

	km := distanceM / 1000
	if km >= 1 {
		badges = append(badges, "1 km")
	}
	if km >= 5 {
		badges = append(badges, "5 km")
	}
	if km >= 10 {
		badges = append(badges, "10 km")
	}
	return badges
}
