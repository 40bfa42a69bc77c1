package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/apperror"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/repository"
)

type snapshotReader interface {
	GetByRoomAndPlayer(ctx context.Context, roomID, playerID string) (*repository.BoardSnapshot, error)
}

type deckReader interface {
	GetByID(ctx context.Context, id string) (*entity.Deck, error)
}

type roomCloser interface {
	CloseRoom(ctx context.Context, roomID string) error
}

type Handlers struct {
	logger    *slog.Logger
	snapshots snapshotReader
	decks     deckReader
	rooms     roomCloser
}

func NewHandlers(logger *slog.Logger, snapshots snapshotReader, decks deckReader, rooms roomCloser) *Handlers {
	return &Handlers{
		logger:    logger.With("component", "rest"),
		snapshots: snapshots,
		decks:     decks,
		rooms:     rooms,
	}
}

func (that *Handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// RoomState serves the persisted board snapshot for one player, the same
// shape the reconciler consumes.
func (that *Handlers) RoomState(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "RoomState")

	roomID := r.PathValue("roomId")
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "playerId is required", http.StatusBadRequest)
		return
	}

	snapshot, err := that.snapshots.GetByRoomAndPlayer(r.Context(), roomID, playerID)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		http.Error(w, "snapshot not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get snapshot", "roomID", roomID, "playerID", playerID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, log, snapshot)
}

func (that *Handlers) CloseRoom(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "CloseRoom")

	roomID := r.PathValue("roomId")

	err := that.rooms.CloseRoom(r.Context(), roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to close room", "roomID", roomID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Handlers) Deck(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Deck")

	deckID := r.PathValue("deckId")

	deck, err := that.decks.GetByID(r.Context(), deckID)
	if errors.Is(err, repository.ErrDeckNotFound) {
		http.Error(w, "deck not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get deck", "deckID", deckID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, log, deck)
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}
