// Package calculator turns receipt assignments into a per-person bill breakdown.
package calculator

import (
	"fmt"
	"sort"

	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

// CalculateBillSummary computes how much each person owes.
//
// Every name in people, in any simple assignment list, or with a positive
// count in a quantity split gets an entry. Item costs are split evenly among
// assignees, or by unit count when the item has a non-empty quantity split.
// Tax and tip are shared in proportion to each person's part of the sum of
// computed subtotals; when nothing is assigned they are split evenly.
// Amounts are not rounded. The result is sorted by name.
func CalculateBillSummary(
	receipt *models.ParsedReceipt,
	assignments models.Assignments,
	quantities models.QuantityAssignments,
	people []string,
) []models.PersonTotal {
	if receipt == nil {
		return []models.PersonTotal{}
	}

	totals := make(map[string]*models.PersonTotal)
	ensure := func(name string) *models.PersonTotal {
		pt, ok := totals[name]
		if !ok {
			pt = &models.PersonTotal{Name: name, Items: []models.PersonItem{}}
			totals[name] = pt
		}
		return pt
	}

	for _, name := range people {
		ensure(name)
	}
	for _, names := range assignments {
		for _, name := range names {
			ensure(name)
		}
	}
	for _, counts := range quantities {
		for name, q := range counts {
			if q > 0 {
				ensure(name)
			}
		}
	}

	for _, item := range receipt.Items {
		if counts := activeCounts(quantities[item.ID]); len(counts) > 0 {
			allocateByQuantity(item, counts, ensure)
			continue
		}

		names := uniqueNames(assignments[item.ID])
		if len(names) == 0 {
			continue
		}

		share := item.Price / float64(len(names))
		for _, name := range names {
			pt := ensure(name)
			pt.Subtotal += share
			pt.Items = append(pt.Items, models.PersonItem{Name: item.Name, Price: share})
		}
	}

	var assignedSum float64
	for _, pt := range totals {
		assignedSum += pt.Subtotal
	}

	headcount := max(len(totals), 1)
	for _, pt := range totals {
		if assignedSum != 0 {
			proportion := pt.Subtotal / assignedSum
			pt.Tax = receipt.Tax * proportion
			pt.Tip = receipt.Tip * proportion
		} else {
			pt.Tax = receipt.Tax / float64(headcount)
			pt.Tip = receipt.Tip / float64(headcount)
		}
		pt.Total = pt.Subtotal + pt.Tax + pt.Tip
	}

	summary := make([]models.PersonTotal, 0, len(totals))
	for _, pt := range totals {
		summary = append(summary, *pt)
	}
	sort.Slice(summary, func(i, j int) bool {
		return summary[i].Name < summary[j].Name
	})

	return summary
}

type quantityShare struct {
	name  string
	count int
}

// activeCounts returns the positive counts of a quantity split in name order.
func activeCounts(counts map[string]int) []quantityShare {
	shares := make([]quantityShare, 0, len(counts))
	for name, q := range counts {
		if q > 0 {
			shares = append(shares, quantityShare{name: name, count: q})
		}
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].name < shares[j].name
	})
	return shares
}

// allocateByQuantity charges each person unit_price * count.
// The basis falls back to the assigned units when the item quantity is not
// positive, so a malformed item never divides by zero.
func allocateByQuantity(
	item models.ReceiptItem,
	shares []quantityShare,
	ensure func(string) *models.PersonTotal,
) {
	basis := item.Quantity
	if basis <= 0 {
		for _, s := range shares {
			basis += s.count
		}
	}

	unitPrice := item.Price / float64(basis)
	for _, s := range shares {
		amount := unitPrice * float64(s.count)
		pt := ensure(s.name)
		pt.Subtotal += amount
		pt.Items = append(pt.Items, models.PersonItem{
			Name:  fmt.Sprintf("%s (x%d)", item.Name, s.count),
			Price: amount,
		})
	}
}

// uniqueNames drops repeated names while keeping first-seen order.
func uniqueNames(names []string) []string {
	if len(names) < 2 {
		return names
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// GrandTotal is the receipt's stated subtotal plus tax and tip.
func GrandTotal(receipt *models.ParsedReceipt) float64 {
	if receipt == nil {
		return 0
	}
	return receipt.Subtotal + receipt.Tax + receipt.Tip
}

// AssignedTotal sums everyone's totals in a summary.
func AssignedTotal(summary []models.PersonTotal) float64 {
	var sum float64
	for _, pt := range summary {
		sum += pt.Total
	}
	return sum
}

// UnassignedItems lists the items that contribute to nobody's subtotal.
func UnassignedItems(
	receipt *models.ParsedReceipt,
	assignments models.Assignments,
	quantities models.QuantityAssignments,
) []models.ReceiptItem {
	if receipt == nil {
		return nil
	}
	var out []models.ReceiptItem
	for _, item := range receipt.Items {
		if len(activeCounts(quantities[item.ID])) > 0 || len(assignments[item.ID]) > 0 {
			continue
		}
		out = append(out, item)
	}
	return out
}
