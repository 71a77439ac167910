//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"gitlab.com/yelinaung/splitly-bot/internal/bot"
	"gitlab.com/yelinaung/splitly-bot/internal/calculator"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

func main() {
	receipt := &models.ParsedReceipt{
		Items: []models.ReceiptItem{
			{ID: "item-1", Name: "Nachos", Quantity: 1, Price: 12},
			{ID: "item-2", Name: "Fish Tacos", Quantity: 2, Price: 18},
			{ID: "item-3", Name: "Beer", Quantity: 3, Price: 21},
			{ID: "item-4", Name: "Churros", Quantity: 1, Price: 8},
		},
		Subtotal: 59,
		Tax:      5.9,
		Tip:      11,
	}
	assignments := models.Assignments{
		"item-1": {"Alice", "Bob", "Carol"},
		"item-2": {"Bob"},
		"item-4": {"Carol"},
	}
	quantities := models.QuantityAssignments{
		"item-3": {"Alice": 2, "Bob": 1},
	}

	summary := calculator.CalculateBillSummary(receipt, assignments, quantities, []string{"Alice", "Bob", "Carol"})

	chartData, err := bot.GenerateSummaryChart(summary, "Friday Dinner")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created graph.png - Example bill split chart")
}
