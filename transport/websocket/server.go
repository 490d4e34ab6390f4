package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/pkg"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
)

type gameUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	MakeMove(ctx context.Context, id string, row, col int) (*entity.Session, error)
	Restart(ctx context.Context, id string) (*entity.Session, error)
}

type handlerFunc func(ctx context.Context, sessionID string, msg *Message) Response

// Server pushes the game of the connection's session after every action it receives.
type Server struct {
	logger    *slog.Logger
	uGame     gameUseCase
	upgrader  websocket.Upgrader
	cookieTTL time.Duration

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, uGame gameUseCase, cookieTTL time.Duration) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		uGame:  uGame,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cookieTTL: cookieTTL,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[ActionState] = server.handleState
	server.handlers[ActionMove] = server.handleMove
	server.handlers[ActionRestart] = server.handleRestart

	return server
}

// ServeHTTP upgrades the request and serves the session named by the session cookie.
func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	var id string
	if cookie, err := r.Cookie(pkg.SessionCookie); err == nil {
		id = cookie.Value
	}

	session, err := that.uGame.GetOrCreateSession(r.Context(), id)
	if err != nil {
		log.Error("failed to get or create session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	header := http.Header{}
	if session.ID != id {
		header.Add("Set-Cookie", pkg.NewSessionCookie(session.ID, that.cookieTTL).String())
	}

	conn, err := that.upgrader.Upgrade(w, r, header)
	if err != nil {
		// the upgrader has already written the error response
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	log.Info("WebSocket connection established", "session", session.ID)

	if err = that.handleMessages(r.Context(), conn, session); err != nil {
		log.Error("error handling messages", "session", session.ID, "error", err)
	}
}

// handleMessages - processes messages from the client until it disconnects.
func (that *Server) handleMessages(ctx context.Context, conn *websocket.Conn, session *entity.Session) error {
	log := that.logger.With("method", "handleMessages", "session", session.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go that.keepAlive(ctx, conn)

	if err := that.write(conn, stateResponse(ActionState, session)); err != nil {
		return err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("connection closed")
				return nil
			}
			return err
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			if err = that.write(conn, errorResponse("", "malformed message")); err != nil {
				return err
			}
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			if err = that.write(conn, errorResponse(message.Action, "unknown action")); err != nil {
				return err
			}
			continue
		}

		if err = that.write(conn, handler(ctx, session.ID, &message)); err != nil {
			return err
		}
	}
}

func (that *Server) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (that *Server) write(conn *websocket.Conn, response Response) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(response)
}
