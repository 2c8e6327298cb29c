package visit

import "time"

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Visit is one check-in session at a bloco. Only the summary is stored;
// the walked path stays on the device.
type Visit struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	BlockID       string     `json:"bloco_id"`
	BlockName     string     `json:"block_name,omitempty"`
	BlockDate     string     `json:"block_date,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	DistanceM     float64    `json:"distance_m"`
	DistanceLabel string     `json:"distance_label"`
	Status        string     `json:"status"`
}

type CheckInRequest struct {
	BlockID string `json:"bloco_id"`
}

type CheckInResponse struct {
	Visit        Visit  `json:"visit"`
	TrackerError string `json:"tracker_error,omitempty"`
}

type Stats struct {
	TotalDistanceM     float64  `json:"total_distance_m"`
	TotalDistanceLabel string   `json:"total_distance_label"`
	TotalVisits        int      `json:"total_visits"`
	Visits             []Visit  `json:"visits"`
	Badges             []string `json:"badges"`
}
