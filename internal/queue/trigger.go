package queue

import "hospital-queue/internal/models"

// Change is a before/after snapshot of one queue mutation.
type Change struct {
	// Before holds the derived status of every token queued before the mutation.
	Before map[string]models.TokenStatus

	Queue  *models.Queue
	Tokens map[string]*models.Token

	// QueueEvent is set for pause, resume and delay; every queued holder gets it.
	QueueEvent models.NotificationEvent

	// CreatedTokenID is the token booked by this mutation, if any.
	CreatedTokenID string
}

// DecideNotifications computes which holders must be told what. It has no
// side effects; a recomputation that moved nobody yields nothing.
func DecideNotifications(c Change) []models.Notification {
	var out []models.Notification

	for _, id := range c.Queue.TokenSequence {
		t, ok := c.Tokens[id]
		if !ok {
			continue
		}

		if id == c.CreatedTokenID {
			out = append(out, newNotification(models.EventBookingConfirmed, c.Queue, t))
			// A token booked straight into the front has no earlier status.
			switch t.Status {
			case models.TokenReady:
				out = append(out, newNotification(models.EventYourTurn, c.Queue, t))
			case models.TokenApproaching:
				out = append(out, newNotification(models.EventApproachingTurn, c.Queue, t))
			}
			continue
		}

		prev, known := c.Before[id]
		if !known {
			continue
		}
		switch {
		case t.Status == models.TokenReady && prev != models.TokenReady:
			out = append(out, newNotification(models.EventYourTurn, c.Queue, t))
		case t.Status == models.TokenApproaching && prev == models.TokenWaiting:
			out = append(out, newNotification(models.EventApproachingTurn, c.Queue, t))
		}
	}

	if c.QueueEvent != "" {
		for _, id := range c.Queue.TokenSequence {
			if t, ok := c.Tokens[id]; ok {
				out = append(out, newNotification(c.QueueEvent, c.Queue, t))
			}
		}
	}
	return out
}

func newNotification(event models.NotificationEvent, q *models.Queue, t *models.Token) models.Notification {
	return models.Notification{
		UserID: t.UserID,
		Event:  event,
		Payload: map[string]any{
			"queue_id":                    q.ID,
			"hospital_id":                 q.HospitalID,
			"department":                  q.Department,
			"date":                        q.Date,
			"queue_status":                string(q.Status),
			"delay_minutes":               q.DelayMinutes,
			"token_id":                    t.ID,
			"token_number":                t.TokenNumber,
			"token_status":                string(t.Status),
			"queue_position":              t.QueuePosition,
			"estimated_wait_time_minutes": t.EstimatedWaitTimeMinutes,
		},
	}
}
