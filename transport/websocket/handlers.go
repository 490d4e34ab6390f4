package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/view"
)

// msgSessionExpired is sent once the connection's session is gone from storage; only a new
// connection gets a new session.
const msgSessionExpired = "session expired, reconnect to start a new game"

func (that *Server) handleState(ctx context.Context, sessionID string, _ *Message) Response {
	session, err := that.uGame.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrSessionNotFound) {
			return errorResponse(ActionState, msgSessionExpired)
		}
		that.logger.Error("failed to get session", "method", "handleState", "session", sessionID, "error", err)
		return errorResponse(ActionState, "failed to get the game")
	}

	return stateResponse(ActionState, session)
}

func (that *Server) handleMove(ctx context.Context, sessionID string, msg *Message) Response {
	log := that.logger.With("method", "handleMove", "session", sessionID)

	var payload MovePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Warn("failed to unmarshal move payload", "error", err)
		return errorResponse(ActionMove, "malformed move")
	}

	if payload.Row == nil || payload.Col == nil {
		return errorResponse(ActionMove, "row and col are required")
	}

	session, err := that.uGame.MakeMove(ctx, sessionID, *payload.Row, *payload.Col)
	switch {
	case err == nil:
		return stateResponse(ActionMove, session)
	case errors.Is(err, apperror.ErrInvalidMove):
		response := stateResponse(ActionMove, session)
		response.Payload.Error = view.ErrorText(err)
		return response
	case errors.Is(err, apperror.ErrSessionNotFound):
		return errorResponse(ActionMove, msgSessionExpired)
	default:
		log.Error("failed to make move", "error", err)
		return errorResponse(ActionMove, "failed to make the move")
	}
}

func (that *Server) handleRestart(ctx context.Context, sessionID string, _ *Message) Response {
	session, err := that.uGame.Restart(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrSessionNotFound) {
			return errorResponse(ActionRestart, msgSessionExpired)
		}
		that.logger.Error("failed to restart game", "method", "handleRestart", "session", sessionID, "error", err)
		return errorResponse(ActionRestart, "failed to restart the game")
	}

	return stateResponse(ActionRestart, session)
}

func stateResponse(action string, session *entity.Session) Response {
	game := view.FromSession(session)

	return Response{
		Action:  action,
		Payload: ResponsePayload{Game: &game},
	}
}

func errorResponse(action, msg string) Response {
	return Response{
		Action:  action,
		Payload: ResponsePayload{Error: msg},
	}
}
