package session

import (
	"fmt"
	"sort"
	"strings"

	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

// Chat log text produced by transitions.
const (
	MsgParsing          = "Parsing receipt..."
	MsgReparsing        = "Re-parsing receipt..."
	MsgAskForNames      = "I've analyzed the receipt! First, tell me who is splitting the bill. Please enter their names separated by commas (e.g., Alice, Bob, Charlie)."
	MsgNoUnassigned     = "There were no unassigned items to assign."
	MsgUndone           = "Undid the last assignment action."
	MsgChatCleared      = "Chat history cleared."
	msgParseFailedFmt   = "Receipt parsing failed: %s"
	msgPeopleAddedFmt   = "Got it! I've added %s. Now you can tell me who had what, or click on items to assign them directly."
	msgErrorFmt         = "Error: %s"
	msgAssignedRestFmt  = "Assigned the remaining %d items to %s."
	msgSplitAllFmt      = "Split all items equally between %d people."
	msgSplitItemFmt     = "Split %s evenly amongst everyone."
	msgClearedItemFmt   = "Cleared assignment for %s."
	msgQuantitySplitFmt = "Split %s by quantity: %s."
	msgQuantityClearFmt = "Cleared quantity split for %s."
	msgItemAddedFmt     = "Added %s to the receipt."
	msgItemRemovedFmt   = "Removed %s from the receipt."
)

// AcceptsAssignmentChanges reports whether assignments may be modified in
// the given status.
func AcceptsAssignmentChanges(status models.Status) bool {
	return status == models.StatusReady || status == models.StatusAssigning
}

// Apply returns the session that results from applying a.
// Actions that don't fit the session's current state, or that reference an
// item the receipt no longer has, return the session unchanged.
func Apply(s models.ReceiptSession, a SessionAction) models.ReceiptSession {
	switch act := a.(type) {
	case SubmitForParsing:
		return submitForParsing(s, act)
	case ParseSucceeded:
		return parseSucceeded(s, act)
	case ParseFailed:
		return parseFailed(s, act)
	case SetPeople:
		return setPeople(s, act)
	case SendMessageStart:
		return sendMessageStart(s, act)
	case SendMessageSucceeded:
		return sendMessageSucceeded(s, act)
	case SendMessageFailed:
		return sendMessageFailed(s, act)
	case DirectAssignment:
		return directAssignment(s, act)
	case AssignAllUnassigned:
		return assignAllUnassigned(s, act)
	case SplitAllEqually:
		return splitAllEqually(s)
	case SplitItemEvenly:
		return splitItemEvenly(s, act)
	case ClearItemAssignment:
		return clearItemAssignment(s, act)
	case UndoLastAssignment:
		return undoLastAssignment(s)
	case EditPersonName:
		return editPersonName(s, act)
	case EditItem:
		return editItem(s, act)
	case EditTotals:
		return editTotals(s, act)
	case ClearChatHistory:
		s.ChatHistory = []models.ChatMessage{{Sender: models.SenderSystem, Text: MsgChatCleared}}
		return s
	case SetSessionImage:
		s.ReceiptImage = act.ImageRef
		return s
	case SetQuantitySplit:
		return setQuantitySplit(s, act)
	case AddItem:
		return addItem(s, act)
	case RemoveItem:
		return removeItem(s, act)
	case RenameSession:
		if name := strings.TrimSpace(act.Name); name != "" {
			s.Name = name
		}
		return s
	default:
		return s
	}
}

// appendChat copies the log before appending so the caller's slice is
// never shared with the result.
func appendChat(log []models.ChatMessage, msgs ...models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(log)+len(msgs))
	out = append(out, log...)
	return append(out, msgs...)
}

func system(text string) models.ChatMessage {
	return models.ChatMessage{Sender: models.SenderSystem, Text: text}
}

// recordAssignment installs next as the current map, pushes the previous map
// to history and logs text.
func recordAssignment(s models.ReceiptSession, next models.Assignments, text string) models.ReceiptSession {
	s.AssignmentsHistory = PushHistory(s.AssignmentsHistory, s.Assignments)
	s.Assignments = next
	s.ChatHistory = appendChat(s.ChatHistory, system(text))
	return s
}

// unionPeople appends names not yet on the roster, keeping first-seen order.
func unionPeople(people []string, names ...string) []string {
	seen := make(map[string]bool, len(people)+len(names))
	out := make([]string, 0, len(people)+len(names))
	for _, group := range [][]string{people, names} {
		for _, n := range group {
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func submitForParsing(s models.ReceiptSession, act SubmitForParsing) models.ReceiptSession {
	if s.Status == models.StatusAssigning {
		return s
	}
	text := MsgParsing
	if act.Retry {
		text = MsgReparsing
	}
	s.Status = models.StatusParsing
	s.ErrorMessage = ""
	s.ChatHistory = []models.ChatMessage{system(text)}
	return s
}

func parseSucceeded(s models.ReceiptSession, act ParseSucceeded) models.ReceiptSession {
	if s.Status != models.StatusParsing || act.Receipt == nil {
		return s
	}

	receipt := act.Receipt.Clone()
	assignments := make(models.Assignments, len(receipt.Items))
	for _, item := range receipt.Items {
		assignments[item.ID] = []string{}
	}

	s.Status = models.StatusAwaitingNames
	s.ParsedReceipt = receipt
	s.Assignments = assignments
	s.QuantityAssignments = nil
	s.AssignmentsHistory = []models.Assignments{}
	s.ChatHistory = []models.ChatMessage{{Sender: models.SenderBot, Text: MsgAskForNames}}
	return s
}

func parseFailed(s models.ReceiptSession, act ParseFailed) models.ReceiptSession {
	if s.Status != models.StatusParsing {
		return s
	}
	s.Status = models.StatusError
	s.ErrorMessage = act.Message
	s.ChatHistory = []models.ChatMessage{system(fmt.Sprintf(msgParseFailedFmt, act.Message))}
	return s
}

func setPeople(s models.ReceiptSession, act SetPeople) models.ReceiptSession {
	if len(act.Names) == 0 {
		return s
	}
	if s.Status != models.StatusAwaitingNames && s.Status != models.StatusReady {
		return s
	}

	s.People = unionPeople(s.People, act.Names...)
	s.Status = models.StatusReady
	s.ChatHistory = appendChat(s.ChatHistory,
		models.ChatMessage{Sender: models.SenderUser, Text: act.UserInput},
		models.ChatMessage{Sender: models.SenderBot, Text: fmt.Sprintf(msgPeopleAddedFmt, strings.Join(s.People, ", "))},
	)
	return s
}

func sendMessageStart(s models.ReceiptSession, act SendMessageStart) models.ReceiptSession {
	if s.Status != models.StatusReady {
		return s
	}
	s.Status = models.StatusAssigning
	s.ChatHistory = appendChat(s.ChatHistory, models.ChatMessage{Sender: models.SenderUser, Text: act.Message})
	return s
}

func sendMessageSucceeded(s models.ReceiptSession, act SendMessageSucceeded) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) {
		return s
	}

	prev := s.Assignments
	next := act.Update.NewAssignments.Clone()
	if next == nil {
		next = models.Assignments{}
	}

	msgs := []models.ChatMessage{{Sender: models.SenderBot, Text: act.Update.BotResponse}}
	if changed := changedItemNames(s.ParsedReceipt, prev, next); len(changed) > 0 {
		msgs = append(msgs, system(FormatAssignmentUpdateMessage(changed)))
	}

	s.Status = models.StatusReady
	s.AssignmentsHistory = PushHistory(s.AssignmentsHistory, prev)
	s.Assignments = next
	s.People = unionPeople(s.People, assigneeNames(s.ParsedReceipt, next)...)
	s.ChatHistory = appendChat(s.ChatHistory, msgs...)
	return s
}

func sendMessageFailed(s models.ReceiptSession, act SendMessageFailed) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) {
		return s
	}
	s.Status = models.StatusReady
	s.ChatHistory = appendChat(s.ChatHistory, system(fmt.Sprintf(msgErrorFmt, act.Message)))
	return s
}

// changedItemNames lists, in receipt order, the items whose assignee set
// differs between prev and next. IDs not on the receipt are not reported.
func changedItemNames(receipt *models.ParsedReceipt, prev, next models.Assignments) []string {
	if receipt == nil {
		return nil
	}
	var changed []string
	for _, item := range receipt.Items {
		if !sameNameSet(prev[item.ID], next[item.ID]) {
			changed = append(changed, item.Name)
		}
	}
	return changed
}

func sameNameSet(a, b []string) bool {
	setA := make(map[string]bool, len(a))
	for _, n := range a {
		setA[n] = true
	}
	setB := make(map[string]bool, len(b))
	for _, n := range b {
		setB[n] = true
	}
	if len(setA) != len(setB) {
		return false
	}
	for n := range setA {
		if !setB[n] {
			return false
		}
	}
	return true
}

// assigneeNames returns every name in assignments in a stable order:
// receipt items first, then any remaining ids sorted.
func assigneeNames(receipt *models.ParsedReceipt, assignments models.Assignments) []string {
	var ids []string
	visited := make(map[string]bool, len(assignments))
	if receipt != nil {
		for _, item := range receipt.Items {
			if _, ok := assignments[item.ID]; ok && !visited[item.ID] {
				visited[item.ID] = true
				ids = append(ids, item.ID)
			}
		}
	}
	var rest []string
	for id := range assignments {
		if !visited[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	ids = append(ids, rest...)

	var names []string
	for _, id := range ids {
		names = append(names, assignments[id]...)
	}
	return names
}

func directAssignment(s models.ReceiptSession, act DirectAssignment) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) {
		return s
	}
	item, ok := s.ParsedReceipt.FindItem(act.ItemID)
	if !ok {
		return s
	}
	names := append([]string{}, act.Names...)
	next := s.Assignments.Clone()
	if next == nil {
		next = models.Assignments{}
	}
	next[item.ID] = names
	return recordAssignment(s, next, FormatAssignmentMessage(item.Name, names))
}

func assignAllUnassigned(s models.ReceiptSession, act AssignAllUnassigned) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) || s.ParsedReceipt == nil {
		return s
	}

	next := s.Assignments.Clone()
	if next == nil {
		next = models.Assignments{}
	}
	count := 0
	for _, item := range s.ParsedReceipt.Items {
		if len(next[item.ID]) > 0 || hasQuantitySplit(s.QuantityAssignments, item.ID) {
			continue
		}
		next[item.ID] = []string{act.PersonName}
		count++
	}

	if count == 0 {
		s.ChatHistory = appendChat(s.ChatHistory, system(MsgNoUnassigned))
		return s
	}
	return recordAssignment(s, next, fmt.Sprintf(msgAssignedRestFmt, count, act.PersonName))
}

func hasQuantitySplit(q models.QuantityAssignments, itemID string) bool {
	for _, n := range q[itemID] {
		if n > 0 {
			return true
		}
	}
	return false
}

func splitAllEqually(s models.ReceiptSession) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) || s.ParsedReceipt == nil || len(s.People) == 0 {
		return s
	}
	next := make(models.Assignments, len(s.ParsedReceipt.Items))
	for _, item := range s.ParsedReceipt.Items {
		next[item.ID] = append([]string{}, s.People...)
	}
	return recordAssignment(s, next, fmt.Sprintf(msgSplitAllFmt, len(s.People)))
}

func splitItemEvenly(s models.ReceiptSession, act SplitItemEvenly) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) || len(s.People) == 0 {
		return s
	}
	item, ok := s.ParsedReceipt.FindItem(act.ItemID)
	if !ok {
		return s
	}
	next := s.Assignments.Clone()
	if next == nil {
		next = models.Assignments{}
	}
	next[item.ID] = append([]string{}, s.People...)
	return recordAssignment(s, next, fmt.Sprintf(msgSplitItemFmt, item.Name))
}

func clearItemAssignment(s models.ReceiptSession, act ClearItemAssignment) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) {
		return s
	}
	item, ok := s.ParsedReceipt.FindItem(act.ItemID)
	if !ok {
		return s
	}
	next := s.Assignments.Clone()
	if next == nil {
		next = models.Assignments{}
	}
	next[item.ID] = []string{}
	return recordAssignment(s, next, fmt.Sprintf(msgClearedItemFmt, item.Name))
}

func undoLastAssignment(s models.ReceiptSession) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) {
		return s
	}
	last, rest, ok := PopHistory(s.AssignmentsHistory)
	if !ok {
		return s
	}
	s.Assignments = last
	s.AssignmentsHistory = rest
	s.ChatHistory = appendChat(s.ChatHistory, system(MsgUndone))
	return s
}

func editPersonName(s models.ReceiptSession, act EditPersonName) models.ReceiptSession {
	if act.OldName == act.NewName {
		return s
	}
	relabel := func(n string) string {
		if n == act.OldName {
			return act.NewName
		}
		return n
	}

	people := make([]string, len(s.People))
	for i, p := range s.People {
		people[i] = relabel(p)
	}

	var assignments models.Assignments
	if s.Assignments != nil {
		assignments = make(models.Assignments, len(s.Assignments))
		for id, names := range s.Assignments {
			out := make([]string, len(names))
			for i, n := range names {
				out[i] = relabel(n)
			}
			assignments[id] = out
		}
	}

	var quantities models.QuantityAssignments
	if s.QuantityAssignments != nil {
		quantities = make(models.QuantityAssignments, len(s.QuantityAssignments))
		for id, counts := range s.QuantityAssignments {
			out := make(map[string]int, len(counts))
			for n, q := range counts {
				out[relabel(n)] += q
			}
			quantities[id] = out
		}
	}

	s.People = people
	s.Assignments = assignments
	s.QuantityAssignments = quantities
	return s
}

func editItem(s models.ReceiptSession, act EditItem) models.ReceiptSession {
	if _, ok := s.ParsedReceipt.FindItem(act.ItemID); !ok {
		return s
	}
	receipt := s.ParsedReceipt.Clone()
	for i := range receipt.Items {
		if receipt.Items[i].ID == act.ItemID {
			receipt.Items[i].Name = act.Name
			receipt.Items[i].Price = act.Price
		}
	}
	s.ParsedReceipt = receipt
	return s
}

func editTotals(s models.ReceiptSession, act EditTotals) models.ReceiptSession {
	if s.ParsedReceipt == nil {
		return s
	}
	receipt := s.ParsedReceipt.Clone()
	receipt.Subtotal = act.Subtotal
	receipt.Tax = act.Tax
	receipt.Tip = act.Tip
	s.ParsedReceipt = receipt
	return s
}

func setQuantitySplit(s models.ReceiptSession, act SetQuantitySplit) models.ReceiptSession {
	if !AcceptsAssignmentChanges(s.Status) {
		return s
	}
	item, ok := s.ParsedReceipt.FindItem(act.ItemID)
	if !ok {
		return s
	}

	counts := make(map[string]int, len(act.Quantities))
	for name, q := range act.Quantities {
		if q > 0 && name != "" {
			counts[name] = q
		}
	}

	quantities := s.QuantityAssignments.Clone()
	if len(counts) == 0 {
		if _, had := quantities[item.ID]; !had {
			return s
		}
		delete(quantities, item.ID)
		if len(quantities) == 0 {
			quantities = nil
		}
		s.QuantityAssignments = quantities
		s.ChatHistory = appendChat(s.ChatHistory, system(fmt.Sprintf(msgQuantityClearFmt, item.Name)))
		return s
	}

	if quantities == nil {
		quantities = models.QuantityAssignments{}
	}
	quantities[item.ID] = counts

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s x%d", name, counts[name])
	}

	s.QuantityAssignments = quantities
	s.People = unionPeople(s.People, names...)
	s.ChatHistory = appendChat(s.ChatHistory, system(fmt.Sprintf(msgQuantitySplitFmt, item.Name, strings.Join(parts, ", "))))
	return s
}

func addItem(s models.ReceiptSession, act AddItem) models.ReceiptSession {
	name := strings.TrimSpace(act.Name)
	if s.ParsedReceipt == nil || name == "" {
		return s
	}

	receipt := s.ParsedReceipt.Clone()
	item := models.ReceiptItem{
		ID:       nextItemID(receipt),
		Name:     name,
		Quantity: max(act.Quantity, 1),
		Price:    max(act.Price, 0),
	}
	receipt.Items = append(receipt.Items, item)

	assignments := s.Assignments.Clone()
	if assignments == nil {
		assignments = models.Assignments{}
	}
	assignments[item.ID] = []string{}

	s.ParsedReceipt = receipt
	s.Assignments = assignments
	s.ChatHistory = appendChat(s.ChatHistory, system(fmt.Sprintf(msgItemAddedFmt, item.Name)))
	return s
}

// nextItemID returns "item-<n>" for the next position, suffixed until unique.
func nextItemID(receipt *models.ParsedReceipt) string {
	base := fmt.Sprintf("item-%d", len(receipt.Items)+1)
	id := base
	for n := 2; ; n++ {
		if _, taken := receipt.FindItem(id); !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func removeItem(s models.ReceiptSession, act RemoveItem) models.ReceiptSession {
	item, ok := s.ParsedReceipt.FindItem(act.ItemID)
	if !ok {
		return s
	}

	receipt := s.ParsedReceipt.Clone()
	items := make([]models.ReceiptItem, 0, len(receipt.Items))
	for _, it := range receipt.Items {
		if it.ID != item.ID {
			items = append(items, it)
		}
	}
	receipt.Items = items

	assignments := s.Assignments.Clone()
	delete(assignments, item.ID)
	quantities := s.QuantityAssignments.Clone()
	delete(quantities, item.ID)
	if len(quantities) == 0 {
		quantities = nil
	}

	s.ParsedReceipt = receipt
	s.Assignments = assignments
	s.QuantityAssignments = quantities
	s.ChatHistory = appendChat(s.ChatHistory, system(fmt.Sprintf(msgItemRemovedFmt, item.Name)))
	return s
}
