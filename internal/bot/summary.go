package bot

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/splitly-bot/internal/calculator"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

const summaryRule = "===================================="

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]`)

// escapeHTML escapes HTML special characters for safe interpolation in Telegram HTML messages.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// formatMoney renders an amount as US dollars, e.g. "$1,234.56" or "-$3.10".
func formatMoney(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	var sb strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	return sign + "$" + sb.String() + "." + frac
}

// summaryFilename builds "bill_summary_<name>.<ext>" with every character
// outside [a-z0-9] replaced by an underscore.
func summaryFilename(sessionName, ext string) string {
	safe := unsafeFilenameChars.ReplaceAllString(strings.ToLower(sessionName), "_")
	return fmt.Sprintf("bill_summary_%s.%s", safe, ext)
}

// billSummary runs the calculator over a session.
func billSummary(s models.ReceiptSession) []models.PersonTotal {
	return calculator.CalculateBillSummary(s.ParsedReceipt, s.Assignments, s.QuantityAssignments, s.People)
}

// FormatSummaryText renders the plain-text bill summary used by /share.
func FormatSummaryText(summary []models.PersonTotal, receipt *models.ParsedReceipt, sessionName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bill Summary for [%s]\n", sessionName)
	sb.WriteString(summaryRule + "\n\n")

	for _, person := range summary {
		fmt.Fprintf(&sb, "--- %s --- Total: %s ---\n", person.Name, formatMoney(person.Total))
		if len(person.Items) == 0 {
			sb.WriteString("  - No items assigned.\n")
		}
		for _, item := range person.Items {
			fmt.Fprintf(&sb, "  - %s: %s\n", item.Name, formatMoney(item.Price))
		}
		fmt.Fprintf(&sb, "  (Subtotal: %s, Tax: %s, Tip: %s)\n\n",
			formatMoney(person.Subtotal), formatMoney(person.Tax), formatMoney(person.Tip))
	}

	if receipt != nil {
		sb.WriteString(summaryRule + "\n")
		sb.WriteString("Receipt Totals:\n")
		fmt.Fprintf(&sb, "Subtotal: %s\n", formatMoney(receipt.Subtotal))
		fmt.Fprintf(&sb, "Tax: %s\n", formatMoney(receipt.Tax))
		fmt.Fprintf(&sb, "Tip: %s\n", formatMoney(receipt.Tip))
		fmt.Fprintf(&sb, "GRAND TOTAL: %s\n", formatMoney(calculator.GrandTotal(receipt)))
		sb.WriteString(summaryRule + "\n")
	}

	return sb.String()
}

// formatItemsHTML lists the receipt lines with their current assignees.
func formatItemsHTML(s models.ReceiptSession) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 <b>%s</b>\n\n", escapeHTML(s.Name))

	if s.ParsedReceipt == nil || len(s.ParsedReceipt.Items) == 0 {
		sb.WriteString("No items on this receipt yet. Add one with /additem.")
		return sb.String()
	}

	for i, item := range s.ParsedReceipt.Items {
		qty := ""
		if item.Quantity > 1 {
			qty = fmt.Sprintf(" x%d", item.Quantity)
		}
		fmt.Fprintf(&sb, "%d. %s%s - %s\n", i+1, escapeHTML(item.Name), qty, formatMoney(item.Price))

		if counts := s.QuantityAssignments[item.ID]; len(counts) > 0 {
			fmt.Fprintf(&sb, "   👥 %s\n", escapeHTML(formatQuantities(counts)))
		} else if names := s.Assignments[item.ID]; len(names) > 0 {
			fmt.Fprintf(&sb, "   👤 %s\n", escapeHTML(session.FormatNameList(names)))
		} else {
			sb.WriteString("   <i>unassigned</i>\n")
		}
	}

	r := s.ParsedReceipt
	fmt.Fprintf(&sb, "\nSubtotal: %s | Tax: %s | Tip: %s\n<b>Total: %s</b>",
		formatMoney(r.Subtotal), formatMoney(r.Tax), formatMoney(r.Tip), formatMoney(calculator.GrandTotal(r)))

	if len(s.People) > 0 {
		fmt.Fprintf(&sb, "\n\nPeople: %s", escapeHTML(strings.Join(s.People, ", ")))
	}
	return sb.String()
}

// formatQuantities renders a quantity split as "Al x2, Bo x1" in name order.
func formatQuantities(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s x%d", name, counts[name])
	}
	return strings.Join(parts, ", ")
}

// formatSummaryHTML renders the per-person breakdown for the chat.
func formatSummaryHTML(s models.ReceiptSession) string {
	summary := billSummary(s)

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 <b>Bill Summary: %s</b>\n", escapeHTML(s.Name))

	if len(summary) == 0 {
		sb.WriteString("\nNobody is splitting this bill yet. Tell me who's here first.")
		return sb.String()
	}

	for _, person := range summary {
		fmt.Fprintf(&sb, "\n<b>%s</b>: %s\n", escapeHTML(person.Name), formatMoney(person.Total))
		for _, item := range person.Items {
			fmt.Fprintf(&sb, "  • %s %s\n", escapeHTML(item.Name), formatMoney(item.Price))
		}
		fmt.Fprintf(&sb, "  <i>subtotal %s, tax %s, tip %s</i>\n",
			formatMoney(person.Subtotal), formatMoney(person.Tax), formatMoney(person.Tip))
	}

	grand := calculator.GrandTotal(s.ParsedReceipt)
	fmt.Fprintf(&sb, "\nAssigned: %s of %s", formatMoney(calculator.AssignedTotal(summary)), formatMoney(grand))

	if unassigned := calculator.UnassignedItems(s.ParsedReceipt, s.Assignments, s.QuantityAssignments); len(unassigned) > 0 {
		names := make([]string, len(unassigned))
		for i, item := range unassigned {
			names[i] = item.Name
		}
		fmt.Fprintf(&sb, "\n⚠️ Unassigned: %s", escapeHTML(strings.Join(names, ", ")))
	}
	return sb.String()
}
