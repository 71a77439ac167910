// Package models defines the domain entities for the receipt splitter.
package models

// Sender identifies who produced a chat message.
type Sender string

// Chat message senders.
const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Status is the lifecycle state of a receipt session.
type Status string

// Session statuses.
const (
	StatusParsing       Status = "parsing"
	StatusAwaitingNames Status = "awaiting_names"
	StatusReady         Status = "ready"
	StatusAssigning     Status = "assigning"
	StatusError         Status = "error"
)

// ReceiptItem is a single priced line on a receipt.
// Price is the total line price, not the unit price.
type ReceiptItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// ParsedReceipt is the structured result of reading a receipt.
// Totals are editable independently of the items and are trusted over
// item-derived sums.
type ParsedReceipt struct {
	Items    []ReceiptItem `json:"items"`
	Subtotal float64       `json:"subtotal"`
	Tax      float64       `json:"tax"`
	Tip      float64       `json:"tip"`
}

// FindItem returns the item with the given ID.
func (r *ParsedReceipt) FindItem(itemID string) (ReceiptItem, bool) {
	if r == nil {
		return ReceiptItem{}, false
	}
	for _, item := range r.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return ReceiptItem{}, false
}

// Clone returns a deep copy of the receipt.
func (r *ParsedReceipt) Clone() *ParsedReceipt {
	if r == nil {
		return nil
	}
	c := *r
	c.Items = append([]ReceiptItem(nil), r.Items...)
	return &c
}

// Assignments maps an item ID to the names responsible for it.
// An empty list means the item is unassigned.
type Assignments map[string][]string

// Clone returns a deep copy of the assignments.
func (a Assignments) Clone() Assignments {
	if a == nil {
		return nil
	}
	c := make(Assignments, len(a))
	for itemID, names := range a {
		c[itemID] = append([]string{}, names...)
	}
	return c
}

// QuantityAssignments maps an item ID to per-person unit counts.
// A non-empty entry overrides the simple assignment for that item.
type QuantityAssignments map[string]map[string]int

// Clone returns a deep copy of the quantity assignments.
func (q QuantityAssignments) Clone() QuantityAssignments {
	if q == nil {
		return nil
	}
	c := make(QuantityAssignments, len(q))
	for itemID, counts := range q {
		inner := make(map[string]int, len(counts))
		for name, n := range counts {
			inner[name] = n
		}
		c[itemID] = inner
	}
	return c
}

// ChatMessage is one entry in a session's conversation log.
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// ReceiptSession is one uploaded receipt and everything derived from it.
type ReceiptSession struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Status              Status              `json:"status"`
	ErrorMessage        string              `json:"errorMessage,omitempty"`
	ParsedReceipt       *ParsedReceipt      `json:"parsedReceipt,omitempty"`
	ReceiptImage        string              `json:"receiptImage,omitempty"`
	Assignments         Assignments         `json:"assignments"`
	QuantityAssignments QuantityAssignments `json:"quantityAssignments,omitempty"`
	AssignmentsHistory  []Assignments       `json:"assignmentsHistory"`
	ChatHistory         []ChatMessage       `json:"chatHistory"`
	People              []string            `json:"people"`
}

// AppState holds every session of one chat and which one is active.
type AppState struct {
	Sessions        []ReceiptSession `json:"sessions"`
	ActiveSessionID string           `json:"activeSessionId,omitempty"`
}

// PersonItem is one person's share of a single receipt line.
type PersonItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// PersonTotal is the calculated breakdown for one person.
type PersonTotal struct {
	Name     string       `json:"name"`
	Items    []PersonItem `json:"items"`
	Subtotal float64      `json:"subtotal"`
	Tax      float64      `json:"tax"`
	Tip      float64      `json:"tip"`
	Total    float64      `json:"total"`
}

// AssignmentUpdate is the result of a natural-language assignment request.
type AssignmentUpdate struct {
	NewAssignments Assignments `json:"newAssignments"`
	BotResponse    string      `json:"botResponse"`
}
