package queue

import "hospital-queue/internal/models"

// DeriveStatus is the single source of truth for a queued token's status.
func DeriveStatus(position int) models.TokenStatus {
	switch {
	case position == 1:
		return models.TokenReady
	case position == 2 || position == 3:
		return models.TokenApproaching
	default:
		return models.TokenWaiting
	}
}

// WaitTime is avg × (position-1) + delay.
func WaitTime(q *models.Queue, position int) int {
	return q.AverageServiceTimeMinutes*(position-1) + q.DelayMinutes
}

// Recompute rewrites position, wait time and derived status of every queued
// token from q's sequence and returns the tokens whose projection changed.
// Terminal tokens are never touched.
func Recompute(q *models.Queue, tokens map[string]*models.Token) []*models.Token {
	var changed []*models.Token
	for i, id := range q.TokenSequence {
		t, ok := tokens[id]
		if !ok || t.Status.Terminal() {
			continue
		}

		pos := i + 1
		wait := WaitTime(q, pos)
		status := DeriveStatus(pos)
		if t.QueuePosition == pos && t.EstimatedWaitTimeMinutes == wait && t.Status == status {
			continue
		}

		t.QueuePosition = pos
		t.EstimatedWaitTimeMinutes = wait
		t.Status = status
		changed = append(changed, t)
	}
	return changed
}

// BuildStatusView projects a queue and its tokens into the public read model.
func BuildStatusView(q *models.Queue, tokens map[string]*models.Token) *models.QueueStatusView {
	view := &models.QueueStatusView{
		QueueID:                   q.ID,
		HospitalID:                q.HospitalID,
		Department:                q.Department,
		Date:                      q.Date,
		Status:                    q.Status,
		Delayed:                   q.IsDelayed(),
		DelayMinutes:              q.DelayMinutes,
		AverageServiceTimeMinutes: q.AverageServiceTimeMinutes,
		Length:                    len(q.TokenSequence),
		TotalIssued:               q.TokenCounter,
		Entries:                   make([]models.QueueEntry, 0, len(q.TokenSequence)),
		Version:                   q.Version,
		UpdatedAt:                 q.UpdatedAt,
	}

	for i, id := range q.TokenSequence {
		t, ok := tokens[id]
		if !ok {
			continue
		}
		pos := i + 1
		view.Entries = append(view.Entries, models.QueueEntry{
			TokenNumber:              t.TokenNumber,
			QueuePosition:            pos,
			Status:                   DeriveStatus(pos),
			EstimatedWaitTimeMinutes: WaitTime(q, pos),
		})
	}
	if len(view.Entries) > 0 {
		view.NowServing = view.Entries[0].TokenNumber
	}
	return view
}
