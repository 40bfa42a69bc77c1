package apperror

import "errors"

var (
	ErrZoneNotFound           = errors.New("card instance not found in zone")
	ErrEmptyLibrary           = errors.New("library is empty")
	ErrSpectatorReadOnly      = errors.New("board is read-only while spectating")
	ErrDeckUnavailable        = errors.New("deck is unavailable")
	ErrReconciliationConflict = errors.New("persisted hand card has no matching library entry")
	ErrRoomNotFound           = errors.New("room not found")
	ErrPlayerNotFound         = errors.New("player not found in room")
	ErrBoardNotHydrated       = errors.New("board is not hydrated yet")
)
