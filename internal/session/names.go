package session

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

// Validation errors returned to callers before an action is built.
var (
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrDuplicateName    = errors.New("name already exists")
	ErrNameUnchanged    = errors.New("name is unchanged")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrQuantityExceeded = errors.New("assigned quantity cannot exceed total quantity")
)

// ParseNames splits comma-separated input into trimmed, non-empty names.
// Repeats are dropped; the first occurrence wins.
func ParseNames(raw string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// ValidateNewPersonName checks a rename of oldName to newName and returns the
// trimmed new name. Duplicates are detected case-insensitively, except that
// changing only the case of oldName is allowed.
func ValidateNewPersonName(people []string, oldName, newName string) (string, error) {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	if trimmed == oldName {
		return trimmed, ErrNameUnchanged
	}
	if !strings.EqualFold(oldName, trimmed) {
		for _, p := range people {
			if strings.EqualFold(p, trimmed) {
				return "", fmt.Errorf("%w: %s", ErrDuplicateName, trimmed)
			}
		}
	}
	return trimmed, nil
}

// ValidateQuantitySplit checks that counts are non-negative and together do
// not exceed the item's quantity.
func ValidateQuantitySplit(item models.ReceiptItem, quantities map[string]int) error {
	total := 0
	for name, q := range quantities {
		if q < 0 {
			return fmt.Errorf("%w: %s has %d", ErrNegativeQuantity, name, q)
		}
		total += q
	}
	if total > item.Quantity {
		return fmt.Errorf("%w: %d of %d assigned", ErrQuantityExceeded, total, item.Quantity)
	}
	return nil
}
