package session

import (
	"fmt"
	"strings"
)

// FormatNameList joins names in plain English with an Oxford comma.
func FormatNameList(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

// FormatAssignmentMessage describes an item's new assignee list,
// e.g. "Nachos is now assigned to A, B, and C.".
func FormatAssignmentMessage(itemName string, names []string) string {
	if len(names) == 0 {
		return fmt.Sprintf("%s is now unassigned.", itemName)
	}
	return fmt.Sprintf("%s is now assigned to %s.", itemName, FormatNameList(names))
}

// FormatAssignmentUpdateMessage summarizes which items a bulk update touched.
func FormatAssignmentUpdateMessage(changedItemNames []string) string {
	if len(changedItemNames) == 0 {
		return "No assignments were changed."
	}
	return fmt.Sprintf("Assignments updated for: %s.", strings.Join(changedItemNames, ", "))
}
