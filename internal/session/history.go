package session

import "gitlab.com/yelinaung/splitly-bot/internal/models"

// MaxUndoHistory is how many prior assignment maps a session remembers.
const MaxUndoHistory = 10

// PushHistory returns history with a copy of snapshot appended.
// When the result would exceed MaxUndoHistory the oldest entry is dropped.
// The input slice is never modified.
func PushHistory(history []models.Assignments, snapshot models.Assignments) []models.Assignments {
	if snapshot == nil {
		snapshot = models.Assignments{}
	}

	start := 0
	if len(history) >= MaxUndoHistory {
		start = len(history) - MaxUndoHistory + 1
	}

	out := make([]models.Assignments, 0, len(history)-start+1)
	out = append(out, history[start:]...)
	return append(out, snapshot.Clone())
}

// PopHistory removes the most recent snapshot.
// It reports false when there is nothing to undo.
func PopHistory(history []models.Assignments) (models.Assignments, []models.Assignments, bool) {
	if len(history) == 0 {
		return nil, history, false
	}
	last := history[len(history)-1].Clone()
	rest := append([]models.Assignments(nil), history[:len(history)-1]...)
	return last, rest, true
}

// CanUndo reports whether the session has an assignment change to revert.
func CanUndo(s models.ReceiptSession) bool {
	return len(s.AssignmentsHistory) > 0
}
