package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAssignmentMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{"unassigned", []string{}, "Nachos is now unassigned."},
		{"nil names", nil, "Nachos is now unassigned."},
		{"one name", []string{"A"}, "Nachos is now assigned to A."},
		{"two names", []string{"A", "B"}, "Nachos is now assigned to A and B."},
		{"three names", []string{"A", "B", "C"}, "Nachos is now assigned to A, B, and C."},
		{"four names", []string{"A", "B", "C", "D"}, "Nachos is now assigned to A, B, C, and D."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, FormatAssignmentMessage("Nachos", tt.names))
		})
	}
}

func TestFormatAssignmentUpdateMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "No assignments were changed.", FormatAssignmentUpdateMessage(nil))
	require.Equal(t, "Assignments updated for: Nachos.", FormatAssignmentUpdateMessage([]string{"Nachos"}))
	require.Equal(t, "Assignments updated for: X, Y, Z.", FormatAssignmentUpdateMessage([]string{"X", "Y", "Z"}))
}

func TestFormatNameList(t *testing.T) {
	t.Parallel()

	require.Empty(t, FormatNameList(nil))
	require.Equal(t, "Al", FormatNameList([]string{"Al"}))
	require.Equal(t, "Al and Bo", FormatNameList([]string{"Al", "Bo"}))
	require.Equal(t, "Al, Bo, and Cy", FormatNameList([]string{"Al", "Bo", "Cy"}))
}
