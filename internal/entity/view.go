package entity

// ViewContext captures whose board a session is currently displaying. It is
// ephemeral: recomputed whenever the viewed player changes, never persisted.
type ViewContext struct {
	SessionUserID    string `json:"session_user_id"`
	ActiveViewUserID string `json:"active_view_user_id"`
}

// NewViewContext resolves the active view; an empty spectatedUserID means
// the session views its own board.
func NewViewContext(sessionUserID, spectatedUserID string) ViewContext {
	activeView := spectatedUserID
	if activeView == "" {
		activeView = sessionUserID
	}

	return ViewContext{
		SessionUserID:    sessionUserID,
		ActiveViewUserID: activeView,
	}
}

func (that ViewContext) IsSpectating() bool {
	return that.ActiveViewUserID != that.SessionUserID
}
