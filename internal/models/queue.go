package models

import (
	"time"
)

type QueueStatus string

const (
	QueueActive QueueStatus = "active"
	QueuePaused QueueStatus = "paused"
)

// Queue is one day's service line for one hospital department.
type Queue struct {
	ID                        string      `json:"id"`
	HospitalID                string      `json:"hospital_id"`
	Department                string      `json:"department"`
	Date                      string      `json:"date"`
	Status                    QueueStatus `json:"status"`
	AverageServiceTimeMinutes int         `json:"average_service_time_minutes"`
	DelayMinutes              int         `json:"delay_minutes"`
	TokenCounter              int64       `json:"token_counter"`
	TokenSequence             []string    `json:"token_sequence"`
	Version                   int64       `json:"version"`
	CreatedAt                 time.Time   `json:"created_at"`
	UpdatedAt                 time.Time   `json:"updated_at"`
}

// IsDelayed is the displayed "delayed" qualifier; it never replaces Status.
func (q *Queue) IsDelayed() bool {
	return q.DelayMinutes > 0
}

// PositionOf returns the 1-based position of tokenID, or 0 when it is not queued.
func (q *Queue) PositionOf(tokenID string) int {
	for i, id := range q.TokenSequence {
		if id == tokenID {
			return i + 1
		}
	}
	return 0
}

// Remove drops tokenID from the sequence and reports whether it was present.
func (q *Queue) Remove(tokenID string) bool {
	pos := q.PositionOf(tokenID)
	if pos == 0 {
		return false
	}
	seq := make([]string, 0, len(q.TokenSequence)-1)
	seq = append(seq, q.TokenSequence[:pos-1]...)
	seq = append(seq, q.TokenSequence[pos:]...)
	q.TokenSequence = seq
	return true
}

type TokenStatus string

const (
	TokenWaiting     TokenStatus = "waiting"
	TokenApproaching TokenStatus = "approaching"
	TokenReady       TokenStatus = "ready"
	TokenServed      TokenStatus = "served"
	TokenCancelled   TokenStatus = "cancelled"
	TokenNoShow      TokenStatus = "no_show"
)

// Terminal reports whether no further transition may leave s.
func (s TokenStatus) Terminal() bool {
	switch s {
	case TokenServed, TokenCancelled, TokenNoShow:
		return true
	}
	return false
}

// Token is one patient's claim on a position in a queue.
// QueuePosition and EstimatedWaitTimeMinutes are projections of the owning
// queue and are only ever written by recomputation.
type Token struct {
	ID                       string      `json:"id"`
	UserID                   string      `json:"user_id"`
	QueueID                  string      `json:"queue_id"`
	HospitalID               string      `json:"hospital_id"`
	Department               string      `json:"department"`
	Date                     string      `json:"date"`
	TokenNumber              int64       `json:"token_number"`
	Status                   TokenStatus `json:"status"`
	QueuePosition            int         `json:"queue_position"`
	EstimatedWaitTimeMinutes int         `json:"estimated_wait_time_minutes"`
	BookedAt                 time.Time   `json:"booked_at"`
	ServedAt                 *time.Time  `json:"served_at,omitempty"`
	CancelledAt              *time.Time  `json:"cancelled_at,omitempty"`
	UpdatedAt                time.Time   `json:"updated_at"`
}

type ControlAction string

const (
	ActionPause       ControlAction = "pause"
	ActionResume      ControlAction = "resume"
	ActionDelay       ControlAction = "delay"
	ActionAdvance     ControlAction = "advance"
	ActionNoShow      ControlAction = "no_show"
	ActionServiceTime ControlAction = "service_time"
	// ActionViewToken records a staff read of a patient's token.
	ActionViewToken   ControlAction = "view_token"
)

// QueueControlLog is a write-once audit entry for a staff control action.
type QueueControlLog struct {
	LogID     string         `json:"log_id"`
	QueueID   string         `json:"queue_id"`
	StaffID   string         `json:"staff_id"`
	Action    ControlAction  `json:"action"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}
