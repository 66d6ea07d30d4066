package models

import "time"

// QueueEntry is the public view of a queued token; it never carries user ids.
type QueueEntry struct {
	TokenNumber              int64       `json:"token_number"`
	QueuePosition            int         `json:"queue_position"`
	Status                   TokenStatus `json:"status"`
	EstimatedWaitTimeMinutes int         `json:"estimated_wait_time_minutes"`
}

// QueueStatusView is what patients, displays and dashboards read.
type QueueStatusView struct {
	QueueID                   string       `json:"queue_id"`
	HospitalID                string       `json:"hospital_id"`
	Department                string       `json:"department"`
	Date                      string       `json:"date"`
	Status                    QueueStatus  `json:"status"`
	Delayed                   bool         `json:"delayed"`
	DelayMinutes              int          `json:"delay_minutes"`
	AverageServiceTimeMinutes int          `json:"average_service_time_minutes"`
	Length                    int          `json:"length"`
	NowServing                int64        `json:"now_serving"`
	TotalIssued               int64        `json:"total_issued"`
	Entries                   []QueueEntry `json:"entries"`
	Version                   int64        `json:"version"`
	UpdatedAt                 time.Time    `json:"updated_at"`
}
