package models

import (
	"fmt"
	"strings"
)

// QueueKey is the immutable identity of a queue.
type QueueKey struct {
	HospitalID string `json:"hospital_id"`
	Department string `json:"department"`
	Date       string `json:"date"`
}

func (k QueueKey) ID() string {
	return k.HospitalID + ":" + k.Department + ":" + k.Date
}

func (k QueueKey) String() string {
	return k.ID()
}

func (q *Queue) Key() QueueKey {
	return QueueKey{HospitalID: q.HospitalID, Department: q.Department, Date: q.Date}
}

func (t *Token) QueueKey() QueueKey {
	return QueueKey{HospitalID: t.HospitalID, Department: t.Department, Date: t.Date}
}

// ParseQueueID splits "hospital:department:date".
func ParseQueueID(id string) (QueueKey, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return QueueKey{}, fmt.Errorf("malformed queue id %q", id)
	}
	return QueueKey{HospitalID: parts[0], Department: parts[1], Date: parts[2]}, nil
}
