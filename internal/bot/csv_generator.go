package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

// GenerateSummaryCSV writes one row per item share followed by a total row
// for each person.
func GenerateSummaryCSV(summary []models.PersonTotal) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"Person", "Item", "Amount", "Subtotal", "Tax", "Tip", "Total"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, person := range summary {
		for _, item := range person.Items {
			row := []string{person.Name, item.Name, money(item.Price), "", "", "", ""}
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write CSV row: %w", err)
			}
		}

		row := []string{
			person.Name,
			"TOTAL",
			"",
			money(person.Subtotal),
			money(person.Tax),
			money(person.Tip),
			money(person.Total),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// money formats an amount with two decimals and no currency symbol.
func money(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
