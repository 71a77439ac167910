// Package session implements the receipt session state machine, its bounded
// undo history and the multi-session container that holds it.
//
// Every change is expressed as an Action. Apply and Reduce are pure: they
// return a new value and never modify their input.
package session

import "gitlab.com/yelinaung/splitly-bot/internal/models"

// Action is a single intent applied to the app state.
// The set of actions is closed; only types in this package implement it.
type Action interface {
	isAction()
}

// SessionAction is an Action aimed at one session.
type SessionAction interface {
	Action
	TargetSession() string
}

// SubmitForParsing starts (or restarts, when Retry is set) receipt parsing.
type SubmitForParsing struct {
	SessionID string
	Retry     bool
}

// ParseSucceeded delivers the parser's result.
type ParseSucceeded struct {
	SessionID string
	Receipt   *models.ParsedReceipt
}

// ParseFailed delivers a parser failure.
type ParseFailed struct {
	SessionID string
	Message   string
}

// SetPeople merges already parsed names into the roster.
// UserInput is the raw text echoed to the chat log.
type SetPeople struct {
	SessionID string
	Names     []string
	UserInput string
}

// SendMessageStart records a natural-language assignment request.
type SendMessageStart struct {
	SessionID string
	Message   string
}

// SendMessageSucceeded delivers the assignment updater's result.
type SendMessageSucceeded struct {
	SessionID string
	Update    models.AssignmentUpdate
}

// SendMessageFailed delivers an assignment updater failure.
type SendMessageFailed struct {
	SessionID string
	Message   string
}

// DirectAssignment replaces one item's assignee list.
type DirectAssignment struct {
	SessionID string
	ItemID    string
	Names     []string
}

// AssignAllUnassigned gives every unassigned item to one person.
type AssignAllUnassigned struct {
	SessionID  string
	PersonName string
}

// SplitAllEqually assigns every item to the whole roster.
type SplitAllEqually struct {
	SessionID string
}

// SplitItemEvenly assigns one item to the whole roster.
type SplitItemEvenly struct {
	SessionID string
	ItemID    string
}

// ClearItemAssignment unassigns one item.
type ClearItemAssignment struct {
	SessionID string
	ItemID    string
}

// UndoLastAssignment restores the previous assignment map.
type UndoLastAssignment struct {
	SessionID string
}

// EditPersonName relabels a person everywhere in the session.
type EditPersonName struct {
	SessionID string
	OldName   string
	NewName   string
}

// EditItem changes an item's name and line price.
type EditItem struct {
	SessionID string
	ItemID    string
	Name      string
	Price     float64
}

// EditTotals overwrites the receipt's stated totals.
type EditTotals struct {
	SessionID string
	Subtotal  float64
	Tax       float64
	Tip       float64
}

// ClearChatHistory resets the chat log.
type ClearChatHistory struct {
	SessionID string
}

// SetSessionImage stores the reference used to re-read the receipt.
type SetSessionImage struct {
	SessionID string
	ImageRef  string
}

// SetQuantitySplit sets per-person unit counts for an item.
// An empty (or all-zero) Quantities clears the split.
type SetQuantitySplit struct {
	SessionID  string
	ItemID     string
	Quantities map[string]int
}

// AddItem appends a manually entered line to the receipt.
type AddItem struct {
	SessionID string
	Name      string
	Price     float64
	Quantity  int
}

// RemoveItem deletes a line from the receipt.
type RemoveItem struct {
	SessionID string
	ItemID    string
}

// RenameSession changes the session's display name.
type RenameSession struct {
	SessionID string
	Name      string
}

// LoadSessions replaces the whole app state.
type LoadSessions struct {
	State models.AppState
}

// AddSessions appends sessions and activates MakeActiveID.
type AddSessions struct {
	Sessions     []models.ReceiptSession
	MakeActiveID string
}

// SwitchSession activates an existing session.
type SwitchSession struct {
	SessionID string
}

// DeleteSession removes a session.
type DeleteSession struct {
	SessionID string
}

// GoHome deactivates the current session.
type GoHome struct{}

// ResetApp discards every session.
type ResetApp struct{}

func (SubmitForParsing) isAction()     {}
func (ParseSucceeded) isAction()       {}
func (ParseFailed) isAction()          {}
func (SetPeople) isAction()            {}
func (SendMessageStart) isAction()     {}
func (SendMessageSucceeded) isAction() {}
func (SendMessageFailed) isAction()    {}
func (DirectAssignment) isAction()     {}
func (AssignAllUnassigned) isAction()  {}
func (SplitAllEqually) isAction()      {}
func (SplitItemEvenly) isAction()      {}
func (ClearItemAssignment) isAction()  {}
func (UndoLastAssignment) isAction()   {}
func (EditPersonName) isAction()       {}
func (EditItem) isAction()             {}
func (EditTotals) isAction()           {}
func (ClearChatHistory) isAction()     {}
func (SetSessionImage) isAction()      {}
func (SetQuantitySplit) isAction()     {}
func (AddItem) isAction()              {}
func (RemoveItem) isAction()           {}
func (RenameSession) isAction()        {}
func (LoadSessions) isAction()         {}
func (AddSessions) isAction()          {}
func (SwitchSession) isAction()        {}
func (DeleteSession) isAction()        {}
func (GoHome) isAction()               {}
func (ResetApp) isAction()             {}

func (a SubmitForParsing) TargetSession() string     { return a.SessionID }
func (a ParseSucceeded) TargetSession() string       { return a.SessionID }
func (a ParseFailed) TargetSession() string          { return a.SessionID }
func (a SetPeople) TargetSession() string            { return a.SessionID }
func (a SendMessageStart) TargetSession() string     { return a.SessionID }
func (a SendMessageSucceeded) TargetSession() string { return a.SessionID }
func (a SendMessageFailed) TargetSession() string    { return a.SessionID }
func (a DirectAssignment) TargetSession() string     { return a.SessionID }
func (a AssignAllUnassigned) TargetSession() string  { return a.SessionID }
func (a SplitAllEqually) TargetSession() string      { return a.SessionID }
func (a SplitItemEvenly) TargetSession() string      { return a.SessionID }
func (a ClearItemAssignment) TargetSession() string  { return a.SessionID }
func (a UndoLastAssignment) TargetSession() string   { return a.SessionID }
func (a EditPersonName) TargetSession() string       { return a.SessionID }
func (a EditItem) TargetSession() string             { return a.SessionID }
func (a EditTotals) TargetSession() string           { return a.SessionID }
func (a ClearChatHistory) TargetSession() string     { return a.SessionID }
func (a SetSessionImage) TargetSession() string      { return a.SessionID }
func (a SetQuantitySplit) TargetSession() string     { return a.SessionID }
func (a AddItem) TargetSession() string              { return a.SessionID }
func (a RemoveItem) TargetSession() string           { return a.SessionID }
func (a RenameSession) TargetSession() string        { return a.SessionID }
