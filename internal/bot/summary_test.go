package bot

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"pgregory.net/rapid"
)

func TestFormatMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{1.2, "$1.20"},
		{12.345, "$12.35"},
		{999.999, "$1,000.00"},
		{1234567.5, "$1,234,567.50"},
		{-3.1, "-$3.10"},
		{-0.001, "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, formatMoney(tt.amount))
		})
	}
}

func TestFormatMoney_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(-1_000_000_000, 1_000_000_000).Draw(t, "cents")
		amount := decimal.New(cents, -2)
		f, _ := amount.Float64()

		got := formatMoney(f)
		neg := strings.HasPrefix(got, "-")
		digits := strings.ReplaceAll(strings.TrimLeft(got, "-$"), ",", "")

		parsed, err := decimal.NewFromString(digits)
		if err != nil {
			t.Fatalf("formatMoney(%v) = %q is not a number: %v", f, got, err)
		}
		if neg {
			parsed = parsed.Neg()
		}
		if !parsed.Equal(amount) {
			t.Fatalf("formatMoney(%v) = %q, want %s", f, got, amount.StringFixed(2))
		}
	})
}

func TestSummaryFilename(t *testing.T) {
	t.Parallel()

	require.Equal(t, "bill_summary_dinner.csv", summaryFilename("Dinner", "csv"))
	require.Equal(t, "bill_summary_fri_night__bar_.txt", summaryFilename("Fri night (bar)", "txt"))
	require.Equal(t, "bill_summary_caf_.png", summaryFilename("Café", "png"))
}

func TestEscapeHTML(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Fish &amp; Chips &lt;large&gt;", escapeHTML("Fish & Chips <large>"))
	require.Equal(t, "plain", escapeHTML("plain"))
}

func TestFormatSummaryText(t *testing.T) {
	t.Parallel()

	summary := []appmodels.PersonTotal{
		{
			Name:     "Alice",
			Items:    []appmodels.PersonItem{{Name: "Nachos", Price: 12}},
			Subtotal: 12, Tax: 1.2, Tip: 2, Total: 15.2,
		},
		{Name: "Bob", Items: []appmodels.PersonItem{}},
	}
	receipt := &appmodels.ParsedReceipt{Subtotal: 12, Tax: 1.2, Tip: 2}

	want := `Bill Summary for [Dinner]
====================================

--- Alice --- Total: $15.20 ---
  - Nachos: $12.00
  (Subtotal: $12.00, Tax: $1.20, Tip: $2.00)

--- Bob --- Total: $0.00 ---
  - No items assigned.
  (Subtotal: $0.00, Tax: $0.00, Tip: $0.00)

====================================
Receipt Totals:
Subtotal: $12.00
Tax: $1.20
Tip: $2.00
GRAND TOTAL: $15.20
====================================
`
	require.Equal(t, want, FormatSummaryText(summary, receipt, "Dinner"))
}

func TestFormatItemsHTML(t *testing.T) {
	t.Parallel()

	t.Run("lists assignees and totals", func(t *testing.T) {
		t.Parallel()
		s := readySession("s1")
		s.Name = "Tacos & Co"
		s.Assignments["item-2"] = []string{"Alice", "Bob"}

		got := formatItemsHTML(s)

		require.True(t, strings.HasPrefix(got, "🧾 <b>Tacos &amp; Co</b>\n\n"))
		require.Contains(t, got, "2. Fish Tacos x2 - $18.00\n   👤 Alice and Bob\n")
		require.Contains(t, got, "Subtotal: $51.00 | Tax: $5.10 | Tip: $10.00\n<b>Total: $66.10</b>")
		require.True(t, strings.HasSuffix(got, "People: Alice, Bob"))
	})

	t.Run("empty receipt", func(t *testing.T) {
		t.Parallel()
		s := readySession("s1")
		s.ParsedReceipt.Items = nil

		require.Contains(t, formatItemsHTML(s), "No items on this receipt yet")
	})
}

func TestFormatQuantities(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Al x2, Bo x1", formatQuantities(map[string]int{"Bo": 1, "Al": 2, "Cy": 0}))
	require.Equal(t, "", formatQuantities(nil))
}

func TestFormatSummaryHTML(t *testing.T) {
	t.Parallel()

	t.Run("breaks down each person", func(t *testing.T) {
		t.Parallel()
		s := readySession("s1")
		s.Assignments["item-1"] = []string{"Alice"}

		got := formatSummaryHTML(s)

		require.Contains(t, got, "<b>Alice</b>: $27.10\n  • Nachos $12.00\n  <i>subtotal $12.00, tax $5.10, tip $10.00</i>")
		require.Contains(t, got, "<b>Bob</b>: $0.00")
		require.Contains(t, got, "Assigned: $27.10 of $66.10")
		require.Contains(t, got, "⚠️ Unassigned: Fish Tacos, Beer")
	})

	t.Run("nobody yet", func(t *testing.T) {
		t.Parallel()
		s := readySession("s1")
		s.People = nil

		require.Contains(t, formatSummaryHTML(s), "Nobody is splitting this bill yet")
	})
}
