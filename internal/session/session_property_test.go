package session

import (
	"testing"

	"gitlab.com/yelinaung/splitly-bot/internal/models"
	"pgregory.net/rapid"
)

var propItemIDs = []string{"i1", "i2", "i3"}

// drawAssignmentAction returns an action that always pushes history on a
// ready session with a non-empty roster.
func drawAssignmentAction(t *rapid.T) SessionAction {
	itemID := rapid.SampledFrom(propItemIDs).Draw(t, "itemID")
	switch rapid.IntRange(0, 3).Draw(t, "kind") {
	case 0:
		names := rapid.SliceOfDistinct(rapid.SampledFrom([]string{"Al", "Bo", "Cy"}), rapid.ID[string]).Draw(t, "names")
		return DirectAssignment{SessionID: sid, ItemID: itemID, Names: names}
	case 1:
		return SplitAllEqually{SessionID: sid}
	case 2:
		return SplitItemEvenly{SessionID: sid, ItemID: itemID}
	default:
		return ClearItemAssignment{SessionID: sid, ItemID: itemID}
	}
}

func propSession() models.ReceiptSession {
	s := NewSession(sid, "Prop")
	s = Apply(s, ParseSucceeded{SessionID: sid, Receipt: testReceipt()})
	return Apply(s, SetPeople{SessionID: sid, Names: []string{"Al", "Bo"}, UserInput: "Al, Bo"})
}

func TestUndoHistory_BoundAndOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := propSession()
		n := rapid.IntRange(1, 3*MaxUndoHistory).Draw(t, "n")

		var priors []models.Assignments
		for range n {
			priors = append(priors, s.Assignments.Clone())
			s = Apply(s, drawAssignmentAction(t))
		}

		want := min(n, MaxUndoHistory)
		if len(s.AssignmentsHistory) != want {
			t.Fatalf("history length %d, want %d", len(s.AssignmentsHistory), want)
		}
		recent := priors[len(priors)-want:]
		for i := range recent {
			if !sameAssignments(recent[i], s.AssignmentsHistory[i]) {
				t.Fatalf("history[%d] = %v, want %v", i, s.AssignmentsHistory[i], recent[i])
			}
		}
	})
}

func TestUndo_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := propSession()
		for range rapid.IntRange(0, 5).Draw(t, "warmup") {
			s = Apply(s, drawAssignmentAction(t))
		}

		before := s.Assignments.Clone()
		chatLen := len(s.ChatHistory)

		s = Apply(s, drawAssignmentAction(t))
		s = Apply(s, UndoLastAssignment{SessionID: sid})

		if !sameAssignments(before, s.Assignments) {
			t.Fatalf("undo restored %v, want %v", s.Assignments, before)
		}
		if len(s.ChatHistory) != chatLen+2 {
			t.Fatalf("chat history length %d, want %d", len(s.ChatHistory), chatLen+2)
		}
	})
}

func TestSetPeople_RosterUnion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pool := []string{"Al", "Bo", "Cy", "Di"}
		s := Apply(NewSession(sid, "Prop"), ParseSucceeded{SessionID: sid, Receipt: testReceipt()})

		var seenOrder []string
		seen := map[string]bool{}
		for range rapid.IntRange(1, 4).Draw(t, "batches") {
			names := rapid.SliceOfN(rapid.SampledFrom(pool), 1, 4).Draw(t, "names")
			s = Apply(s, SetPeople{SessionID: sid, Names: names, UserInput: "x"})
			for _, n := range names {
				if !seen[n] {
					seen[n] = true
					seenOrder = append(seenOrder, n)
				}
			}
		}

		if len(s.People) != len(seenOrder) {
			t.Fatalf("roster %v, want %v", s.People, seenOrder)
		}
		for i := range seenOrder {
			if s.People[i] != seenOrder[i] {
				t.Fatalf("roster %v, want %v", s.People, seenOrder)
			}
		}
	})
}

func sameAssignments(a, b models.Assignments) bool {
	if len(a) != len(b) {
		return false
	}
	for id, names := range a {
		other, ok := b[id]
		if !ok || len(other) != len(names) {
			return false
		}
		for i := range names {
			if names[i] != other[i] {
				return false
			}
		}
	}
	return true
}
