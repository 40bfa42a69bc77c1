package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/tabletop"
	"github.com/rhysticwizard/cardsite-v4-sub001/internal/usecase"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024

	// sendBufferSize bounds per-client backlog; a client that cannot drain
	// it is dropped rather than allowed to stall the room broadcast.
	sendBufferSize = 64
)

type roomService interface {
	JoinRoom(ctx context.Context, roomID, playerID, deckID string) (*usecase.BoardView, error)
	LeaveRoom(roomID, playerID string) error
	SpectatePlayer(ctx context.Context, roomID string, view entity.ViewContext) (*usecase.BoardView, error)

	Draw(ctx context.Context, roomID string, view entity.ViewContext) (*usecase.BoardUpdate, error)
	PlayCard(ctx context.Context, roomID string, view entity.ViewContext, handInstanceID string, position entity.Position) (*usecase.PlayResult, error)
	PlayFromLibrary(ctx context.Context, roomID string, view entity.ViewContext, libraryInstanceID string, position entity.Position) (*usecase.PlayResult, error)
	TapCard(ctx context.Context, roomID string, view entity.ViewContext, instanceID string, tapped bool) ([]tabletop.TapResult, error)
	GroupTap(ctx context.Context, roomID string, view entity.ViewContext, instanceIDs []string) ([]tabletop.TapResult, error)
	MoveCard(ctx context.Context, roomID string, view entity.ViewContext, instanceID string, position entity.Position) (entity.PlacedCard, error)
	ReturnCard(ctx context.Context, roomID string, view entity.ViewContext, instanceID string) (*usecase.ReturnResult, error)
}

// client is one connected session. view is read and written only from the
// client's own read loop, so it needs no lock.
type client struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	roomID   string
	view     entity.ViewContext
}

type Server struct {
	logger *slog.Logger
	rooms  roomService

	upgrader websocket.Upgrader

	// membersMutex guards the per-room client registry so a client leaving
	// mid-broadcast never breaks the fan-out to remaining members.
	membersMutex sync.RWMutex
	members      map[string]map[*client]struct{}

	handlers map[string]func(ctx context.Context, cl *client, message *Message) error
}

func New(logger *slog.Logger, rooms roomService) *Server {
	server := &Server{
		logger: logger.With("component", "ws"),
		rooms:  rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		members:  make(map[string]map[*client]struct{}),
		handlers: make(map[string]func(context.Context, *client, *Message) error),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionRoomJoin] = server.handleRoomJoin
	server.handlers[actionRoomSpectate] = server.handleRoomSpectate
	server.handlers[actionBoardDraw] = server.handleBoardDraw
	server.handlers[actionBoardPlay] = server.handleBoardPlay
	server.handlers[actionBoardPlayFromLibrary] = server.handleBoardPlayFromLibrary
	server.handlers[actionBoardTap] = server.handleBoardTap
	server.handlers[actionBoardGroupTap] = server.handleBoardGroupTap
	server.handlers[actionBoardMove] = server.handleBoardMove
	server.handlers[actionBoardReturn] = server.handleBoardReturn

	return server
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 0, // connections are long-lived
		IdleTimeout: 0,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Handler exposes the /ws endpoint for embedding in tests.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	return mux
}

func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	go cl.writePump()

	that.readPump(ctx, cl)
}

// readPump serializes all inbound actions for one client; per-sender causal
// order is preserved because this is the only goroutine dispatching them.
func (that *Server) readPump(ctx context.Context, cl *client) {
	log := that.logger.With("method", "readPump")

	defer func() {
		that.leave(cl)
		close(cl.send)
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("connection read failed", "playerID", cl.playerID, "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.sendError(cl, message.Action, "unknown action")
			continue
		}

		// Handler errors are recovered locally: the origin gets an error
		// payload, nothing is broadcast, local state stays intact.
		if err = handler(ctx, cl, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
			that.sendError(cl, message.Action, err.Error())
		}
	}
}

func (cl *client) writePump() {
	for data := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	_ = cl.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
}

func (that *Server) register(cl *client) {
	that.membersMutex.Lock()
	defer that.membersMutex.Unlock()

	room, ok := that.members[cl.roomID]
	if !ok {
		room = make(map[*client]struct{})
		that.members[cl.roomID] = room
	}

	room[cl] = struct{}{}
}

// leave removes the client from the fan-out registry and drops its in-memory
// board. The persisted snapshot survives for reconnection.
func (that *Server) leave(cl *client) {
	if cl.roomID == "" {
		return
	}

	that.unregister(cl)

	if err := that.rooms.LeaveRoom(cl.roomID, cl.playerID); err != nil {
		that.logger.Warn("failed to leave room", "roomID", cl.roomID, "playerID", cl.playerID, "error", err)
	}
}

func (that *Server) unregister(cl *client) {
	if cl.roomID == "" {
		return
	}

	that.membersMutex.Lock()
	defer that.membersMutex.Unlock()

	if room, ok := that.members[cl.roomID]; ok {
		delete(room, cl)
		if len(room) == 0 {
			delete(that.members, cl.roomID)
		}
	}
}

// sendMessage delivers an event to one client.
func (that *Server) sendMessage(cl *client, action string, payload any) {
	data, err := marshalMessage(action, payload)
	if err != nil {
		that.logger.Error("failed to marshal message", "action", action, "error", err)
		return
	}

	select {
	case cl.send <- data:
	default:
		that.logger.Warn("client send buffer full, dropping message",
			"playerID", cl.playerID, "action", action)
	}
}

// broadcast fans an event out to every room member except the origin. The
// origin already applied its own action; it must never re-apply it.
func (that *Server) broadcast(roomID string, origin *client, action string, payload any) {
	data, err := marshalMessage(action, payload)
	if err != nil {
		that.logger.Error("failed to marshal broadcast", "action", action, "error", err)
		return
	}

	that.membersMutex.RLock()
	defer that.membersMutex.RUnlock()

	for member := range that.members[roomID] {
		if member == origin {
			continue
		}

		select {
		case member.send <- data:
		default:
			that.logger.Warn("member send buffer full, dropping broadcast",
				"playerID", member.playerID, "action", action)
		}
	}
}

func (that *Server) sendError(cl *client, action, errorMsg string) {
	that.sendMessage(cl, eventError, ErrorPayload{PlayerID: cl.playerID, Error: fmt.Sprintf("%s: %s", action, errorMsg)})
}

func marshalMessage(action string, payload any) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Message{Action: action, Payload: payloadJSON})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return data, nil
}
