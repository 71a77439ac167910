package session

import "gitlab.com/yelinaung/splitly-bot/internal/models"

// NewSession returns an empty session waiting for its receipt to be parsed.
func NewSession(id, name string) models.ReceiptSession {
	return models.ReceiptSession{
		ID:                 id,
		Name:               name,
		Status:             models.StatusParsing,
		Assignments:        models.Assignments{},
		AssignmentsHistory: []models.Assignments{},
		ChatHistory:        []models.ChatMessage{},
		People:             []string{},
	}
}

// Reduce applies a to the app state.
// Session actions are routed by id; an id that matches no session is a no-op,
// which is how late results for deleted sessions are discarded.
func Reduce(state models.AppState, a Action) models.AppState {
	switch act := a.(type) {
	case LoadSessions:
		return models.AppState{
			Sessions:        append([]models.ReceiptSession{}, act.State.Sessions...),
			ActiveSessionID: act.State.ActiveSessionID,
		}

	case AddSessions:
		sessions := make([]models.ReceiptSession, 0, len(state.Sessions)+len(act.Sessions))
		sessions = append(sessions, state.Sessions...)
		sessions = append(sessions, act.Sessions...)
		return models.AppState{Sessions: sessions, ActiveSessionID: act.MakeActiveID}

	case SwitchSession:
		if _, ok := Find(state, act.SessionID); !ok {
			return state
		}
		state.ActiveSessionID = act.SessionID
		return state

	case DeleteSession:
		return deleteSession(state, act.SessionID)

	case GoHome:
		state.ActiveSessionID = ""
		return state

	case ResetApp:
		return models.AppState{Sessions: []models.ReceiptSession{}}

	case SessionAction:
		return applyToSession(state, act)

	default:
		return state
	}
}

func applyToSession(state models.AppState, act SessionAction) models.AppState {
	id := act.TargetSession()
	for i, s := range state.Sessions {
		if s.ID != id {
			continue
		}
		sessions := append([]models.ReceiptSession{}, state.Sessions...)
		sessions[i] = Apply(s, act)
		return models.AppState{Sessions: sessions, ActiveSessionID: state.ActiveSessionID}
	}
	return state
}

func deleteSession(state models.AppState, id string) models.AppState {
	sessions := make([]models.ReceiptSession, 0, len(state.Sessions))
	for _, s := range state.Sessions {
		if s.ID != id {
			sessions = append(sessions, s)
		}
	}

	active := state.ActiveSessionID
	if active == id {
		active = ""
		if len(sessions) > 0 {
			active = sessions[0].ID
		}
	}
	return models.AppState{Sessions: sessions, ActiveSessionID: active}
}

// Find returns the session with the given id.
func Find(state models.AppState, id string) (models.ReceiptSession, bool) {
	for _, s := range state.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return models.ReceiptSession{}, false
}

// Active returns the active session, if any.
func Active(state models.AppState) (models.ReceiptSession, bool) {
	if state.ActiveSessionID == "" {
		return models.ReceiptSession{}, false
	}
	return Find(state, state.ActiveSessionID)
}

// NewChatMessages returns the chat entries after produced that before did
// not have. When the log was replaced rather than extended, the whole new
// log is returned.
func NewChatMessages(before, after models.ReceiptSession) []models.ChatMessage {
	if len(after.ChatHistory) < len(before.ChatHistory) {
		return after.ChatHistory
	}
	for i, msg := range before.ChatHistory {
		if after.ChatHistory[i] != msg {
			return after.ChatHistory
		}
	}
	return after.ChatHistory[len(before.ChatHistory):]
}
