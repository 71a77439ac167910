package calculator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

const tolerance = 1e-9

func byName(summary []models.PersonTotal) map[string]models.PersonTotal {
	out := make(map[string]models.PersonTotal, len(summary))
	for _, pt := range summary {
		out[pt.Name] = pt
	}
	return out
}

func TestCalculateBillSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		receipt      *models.ParsedReceipt
		assignments  models.Assignments
		quantities   models.QuantityAssignments
		people       []string
		validateFunc func(t *testing.T, summary []models.PersonTotal)
	}{
		{
			name:    "nil receipt yields empty summary",
			receipt: nil,
			people:  []string{"A"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				require.Empty(t, summary)
			},
		},
		{
			name: "even split",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
			},
			assignments: models.Assignments{"i1": {"A", "B"}},
			people:      []string{"A", "B"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 5.0, got["A"].Subtotal, tolerance)
				require.InDelta(t, 5.0, got["B"].Subtotal, tolerance)
				require.Equal(t, []models.PersonItem{{Name: "Pizza", Price: 5}}, got["A"].Items)
			},
		},
		{
			name: "quantity split",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Beer", Quantity: 3, Price: 9}},
			},
			quantities: models.QuantityAssignments{"i1": {"A": 2, "B": 1}},
			people:     []string{"A", "B"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 6.0, got["A"].Subtotal, tolerance)
				require.InDelta(t, 3.0, got["B"].Subtotal, tolerance)
				require.Equal(t, "Beer (x2)", got["A"].Items[0].Name)
				require.Equal(t, "Beer (x1)", got["B"].Items[0].Name)
			},
		},
		{
			name: "quantity split overrides simple assignment",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Beer", Quantity: 3, Price: 9}},
			},
			assignments: models.Assignments{"i1": {"C"}},
			quantities:  models.QuantityAssignments{"i1": {"A": 3}},
			people:      []string{"A", "C"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 9.0, got["A"].Subtotal, tolerance)
				require.InDelta(t, 0.0, got["C"].Subtotal, tolerance)
			},
		},
		{
			name: "all-zero quantity split falls back to simple assignment",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Beer", Quantity: 3, Price: 9}},
			},
			assignments: models.Assignments{"i1": {"C"}},
			quantities:  models.QuantityAssignments{"i1": {"A": 0}},
			people:      []string{"A", "C"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 0.0, got["A"].Subtotal, tolerance)
				require.InDelta(t, 9.0, got["C"].Subtotal, tolerance)
			},
		},
		{
			name: "partial quantity split leaves remaining units unallocated",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Wings", Quantity: 4, Price: 20}},
			},
			quantities: models.QuantityAssignments{"i1": {"A": 1}},
			people:     []string{"A"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 5.0, got["A"].Subtotal, tolerance)
			},
		},
		{
			name: "zero quantity item uses assigned units as basis",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Odd", Quantity: 0, Price: 12}},
			},
			quantities: models.QuantityAssignments{"i1": {"A": 1, "B": 2}},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 4.0, got["A"].Subtotal, tolerance)
				require.InDelta(t, 8.0, got["B"].Subtotal, tolerance)
			},
		},
		{
			name: "proportional tax and tip",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{
					{ID: "i1", Name: "Steak", Quantity: 1, Price: 70},
					{ID: "i2", Name: "Salad", Quantity: 1, Price: 30},
				},
				Subtotal: 100,
				Tax:      10,
				Tip:      20,
			},
			assignments: models.Assignments{"i1": {"B"}, "i2": {"A"}},
			people:      []string{"A", "B"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 3.0, got["A"].Tax, tolerance)
				require.InDelta(t, 7.0, got["B"].Tax, tolerance)
				require.InDelta(t, 6.0, got["A"].Tip, tolerance)
				require.InDelta(t, 14.0, got["B"].Tip, tolerance)
				require.InDelta(t, 39.0, got["A"].Total, tolerance)
				require.InDelta(t, 91.0, got["B"].Total, tolerance)
			},
		},
		{
			name: "tax prorated on computed subtotals not stated subtotal",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{
					{ID: "i1", Name: "Steak", Quantity: 1, Price: 70},
					{ID: "i2", Name: "Salad", Quantity: 1, Price: 30},
				},
				Subtotal: 250,
				Tax:      10,
			},
			assignments: models.Assignments{"i1": {"B"}, "i2": {"A"}},
			people:      []string{"A", "B"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 3.0, got["A"].Tax, tolerance)
				require.InDelta(t, 7.0, got["B"].Tax, tolerance)
			},
		},
		{
			name: "zero subtotal splits tax evenly",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
				Tax:   10,
				Tip:   4,
			},
			assignments: models.Assignments{"i1": {}},
			people:      []string{"A", "B"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				for _, pt := range summary {
					require.InDelta(t, 5.0, pt.Tax, tolerance)
					require.InDelta(t, 2.0, pt.Tip, tolerance)
					require.InDelta(t, 0.0, pt.Subtotal, tolerance)
					require.Empty(t, pt.Items)
				}
			},
		},
		{
			name: "nobody at all yields empty summary without dividing by zero",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
				Tax:   10,
			},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				require.Empty(t, summary)
			},
		},
		{
			name: "roster member with nothing assigned gets zero tax when others have items",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
				Tax:   2,
			},
			assignments: models.Assignments{"i1": {"A"}},
			people:      []string{"A", "Idle"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.Contains(t, got, "Idle")
				require.InDelta(t, 0.0, got["Idle"].Total, tolerance)
				require.InDelta(t, 2.0, got["A"].Tax, tolerance)
			},
		},
		{
			name: "assignee missing from roster is still represented",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
			},
			assignments: models.Assignments{"i1": {"Ghost"}},
			people:      []string{"A"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.Contains(t, got, "Ghost")
				require.InDelta(t, 10.0, got["Ghost"].Subtotal, tolerance)
			},
		},
		{
			name: "assignments for unknown items are ignored",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
			},
			assignments: models.Assignments{"gone": {"A"}},
			people:      []string{"A"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				require.Len(t, summary, 1)
				require.InDelta(t, 0.0, summary[0].Subtotal, tolerance)
			},
		},
		{
			name: "duplicate assignee counted once",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
			},
			assignments: models.Assignments{"i1": {"A", "A", "B"}},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				got := byName(summary)
				require.InDelta(t, 5.0, got["A"].Subtotal, tolerance)
				require.Len(t, got["A"].Items, 1)
			},
		},
		{
			name: "sorted by name",
			receipt: &models.ParsedReceipt{
				Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
			},
			people: []string{"Cy", "Al", "Bo"},
			validateFunc: func(t *testing.T, summary []models.PersonTotal) {
				require.Equal(t, "Al", summary[0].Name)
				require.Equal(t, "Bo", summary[1].Name)
				require.Equal(t, "Cy", summary[2].Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			summary := CalculateBillSummary(tt.receipt, tt.assignments, tt.quantities, tt.people)
			tt.validateFunc(t, summary)
		})
	}
}

func TestCalculateBillSummary_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	receipt := &models.ParsedReceipt{
		Items: []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 2, Price: 10}},
	}
	assignments := models.Assignments{"i1": {"A", "A"}}
	quantities := models.QuantityAssignments{"i1": {"A": 0}}
	people := []string{"B", "A"}

	_ = CalculateBillSummary(receipt, assignments, quantities, people)

	require.Equal(t, models.Assignments{"i1": {"A", "A"}}, assignments)
	require.Equal(t, models.QuantityAssignments{"i1": {"A": 0}}, quantities)
	require.Equal(t, []string{"B", "A"}, people)
}

func TestGrandTotalAndAssignedTotal(t *testing.T) {
	t.Parallel()

	receipt := &models.ParsedReceipt{
		Items:    []models.ReceiptItem{{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10}},
		Subtotal: 10,
		Tax:      1,
		Tip:      2,
	}
	require.InDelta(t, 13.0, GrandTotal(receipt), tolerance)
	require.InDelta(t, 0.0, GrandTotal(nil), tolerance)

	summary := CalculateBillSummary(receipt, models.Assignments{"i1": {"A", "B"}}, nil, nil)
	require.InDelta(t, 13.0, AssignedTotal(summary), tolerance)
}

func TestUnassignedItems(t *testing.T) {
	t.Parallel()

	receipt := &models.ParsedReceipt{
		Items: []models.ReceiptItem{
			{ID: "i1", Name: "Pizza", Quantity: 1, Price: 10},
			{ID: "i2", Name: "Beer", Quantity: 2, Price: 8},
			{ID: "i3", Name: "Salad", Quantity: 1, Price: 6},
		},
	}
	got := UnassignedItems(receipt,
		models.Assignments{"i1": {"A"}, "i2": {}, "i3": {}},
		models.QuantityAssignments{"i2": {"B": 1}},
	)
	require.Len(t, got, 1)
	require.Equal(t, "i3", got[0].ID)
	require.Nil(t, UnassignedItems(nil, nil, nil))
}
