package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/apperror"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/tabletop"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/usecase"
)

// handleConnect assigns or confirms the session's player identity.
func (that *Server) handleConnect(_ context.Context, cl *client, message *Message) error {
	var payload ConnectPayload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	if payload.PlayerID == "" {
		payload.PlayerID = uuid.NewString()
	}

	cl.playerID = payload.PlayerID
	cl.view = entity.NewViewContext(cl.playerID, "")

	that.sendMessage(cl, message.Action, ConnectPayload{PlayerID: cl.playerID})

	that.logger.Info("session connected", "playerID", cl.playerID)

	return nil
}

// handleRoomJoin registers the client in a room and hydrates its own board.
// Reconnects take the same path: the snapshot is re-fetched, no missed-event
// log is replayed.
func (that *Server) handleRoomJoin(ctx context.Context, cl *client, message *Message) error {
	log := that.logger.With("method", "handleRoomJoin")

	var payload JoinPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.PlayerID == "" || payload.RoomID == "" {
		return errors.New("playerId and roomId are required")
	}

	if cl.roomID != "" && cl.roomID != payload.RoomID {
		that.leave(cl)
		cl.roomID = ""
	}

	cl.playerID = payload.PlayerID
	cl.view = entity.NewViewContext(cl.playerID, "")

	// Registration waits for the join to succeed: a session whose hydration
	// failed must not receive the room's broadcasts.
	view, err := that.rooms.JoinRoom(ctx, payload.RoomID, payload.PlayerID, payload.DeckID)
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	cl.roomID = payload.RoomID
	that.register(cl)

	that.sendBoardView(cl, view)

	that.broadcast(cl.roomID, cl, eventPlayerJoined, PlayerJoinedPayload{PlayerID: cl.playerID})

	if view.EmitHandState {
		that.broadcast(cl.roomID, cl, eventHandStateChanged, HandStateChangedPayload{
			PlayerID:     view.PlayerID,
			HandCards:    view.HandCards,
			LibraryCards: view.LibraryCards,
		})
	}

	log.Info("player joined room", "playerID", cl.playerID, "roomID", cl.roomID)

	return nil
}

// handleRoomSpectate switches which board this session is viewing and
// hydrates the newly targeted player.
func (that *Server) handleRoomSpectate(ctx context.Context, cl *client, message *Message) error {
	log := that.logger.With("method", "handleRoomSpectate")

	var payload SpectatePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if cl.roomID == "" {
		return fmt.Errorf("%w: join a room first", apperror.ErrRoomNotFound)
	}

	cl.view = entity.NewViewContext(cl.playerID, payload.PlayerID)

	view, err := that.rooms.SpectatePlayer(ctx, cl.roomID, cl.view)
	if err != nil {
		return fmt.Errorf("failed to spectate player: %w", err)
	}

	that.sendBoardView(cl, view)

	log.Info("view switched",
		"playerID", cl.playerID, "viewing", cl.view.ActiveViewUserID, "spectating", cl.view.IsSpectating())

	return nil
}

func (that *Server) handleBoardDraw(ctx context.Context, cl *client, _ *Message) error {
	update, err := that.rooms.Draw(ctx, cl.roomID, cl.view)
	if err != nil {
		return err
	}

	that.emitHandState(cl, update)

	return nil
}

func (that *Server) handleBoardPlay(ctx context.Context, cl *client, message *Message) error {
	var payload PlayPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	result, err := that.rooms.PlayCard(ctx, cl.roomID, cl.view, payload.CardID, payload.Position)
	if err != nil {
		return err
	}

	that.emitCardPlayed(cl, result)

	return nil
}

func (that *Server) handleBoardPlayFromLibrary(ctx context.Context, cl *client, message *Message) error {
	var payload PlayPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	result, err := that.rooms.PlayFromLibrary(ctx, cl.roomID, cl.view, payload.CardID, payload.Position)
	if err != nil {
		return err
	}

	that.emitCardPlayed(cl, result)

	return nil
}

func (that *Server) handleBoardTap(ctx context.Context, cl *client, message *Message) error {
	var payload TapPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	results, err := that.rooms.TapCard(ctx, cl.roomID, cl.view, payload.CardID, payload.Tapped)
	if err != nil {
		return err
	}

	that.emitTapped(cl, results)

	return nil
}

func (that *Server) handleBoardGroupTap(ctx context.Context, cl *client, message *Message) error {
	var payload GroupTapPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	results, err := that.rooms.GroupTap(ctx, cl.roomID, cl.view, payload.CardIDs)
	if err != nil {
		return err
	}

	that.emitTapped(cl, results)

	return nil
}

func (that *Server) handleBoardMove(ctx context.Context, cl *client, message *Message) error {
	var payload MovePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	placed, err := that.rooms.MoveCard(ctx, cl.roomID, cl.view, payload.CardID, payload.Position)
	if err != nil {
		return err
	}

	moved := CardMovedPayload{PlayerID: cl.playerID, CardID: placed.InstanceID, Position: placed.Position}
	that.sendMessage(cl, eventCardMoved, moved)
	that.broadcast(cl.roomID, cl, eventCardMoved, moved)

	return nil
}

func (that *Server) handleBoardReturn(ctx context.Context, cl *client, message *Message) error {
	var payload ReturnPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	result, err := that.rooms.ReturnCard(ctx, cl.roomID, cl.view, payload.CardID)
	if err != nil {
		return err
	}

	returned := CardReturnedPayload{PlayerID: cl.playerID, CardID: result.CardID}
	that.sendMessage(cl, eventCardReturned, returned)
	that.broadcast(cl.roomID, cl, eventCardReturned, returned)

	that.emitHandState(cl, result.Update)

	return nil
}

// sendBoardView pushes a full-state snapshot of one board to a single
// client, used for initial sync and view switches.
func (that *Server) sendBoardView(cl *client, view *usecase.BoardView) {
	that.sendMessage(cl, eventGameState, GameStatePayload{
		PlayerID:         view.PlayerID,
		BattlefieldCards: view.BattlefieldCards,
	})
	that.sendMessage(cl, eventHandStateChanged, HandStateChangedPayload{
		PlayerID:     view.PlayerID,
		HandCards:    view.HandCards,
		LibraryCards: view.LibraryCards,
	})
}

// emitHandState converges every mirror of the acting player's hand/library,
// the origin included: instance identities are minted here, so the origin
// needs the authoritative copy too.
func (that *Server) emitHandState(cl *client, update *usecase.BoardUpdate) {
	payload := HandStateChangedPayload{
		PlayerID:     update.PlayerID,
		HandCards:    update.HandCards,
		LibraryCards: update.LibraryCards,
	}

	that.sendMessage(cl, eventHandStateChanged, payload)
	that.broadcast(cl.roomID, cl, eventHandStateChanged, payload)
}

func (that *Server) emitCardPlayed(cl *client, result *usecase.PlayResult) {
	played := CardPlayedPayload{
		PlayerID: cl.playerID,
		Card:     result.Placed,
		Position: result.Placed.Position,
	}

	that.sendMessage(cl, eventCardPlayed, played)
	that.broadcast(cl.roomID, cl, eventCardPlayed, played)

	that.emitHandState(cl, result.Update)
}

func (that *Server) emitTapped(cl *client, results []tabletop.TapResult) {
	for _, result := range results {
		tapped := CardTappedPayload{PlayerID: cl.playerID, CardID: result.CardID, Tapped: result.Tapped}
		that.sendMessage(cl, eventCardTapped, tapped)
		that.broadcast(cl.roomID, cl, eventCardTapped, tapped)
	}
}
