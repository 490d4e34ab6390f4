package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-local/internal/view"
)

var errMalformedCell = errors.New("cell must be formatted as row,col")

type moveRequest struct {
	Row *int `json:"row" validate:"required"`
	Col *int `json:"col" validate:"required"`
}

type errorResponse struct {
	Error string     `json:"error"`
	Game  *view.Game `json:"game,omitempty"`
}

func (that *handlers) index(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "index")

	session, err := that.session(w, r)
	if err != nil {
		log.Error("failed to get session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	body, err := that.pages.renderGame(view.FromSession(session))
	if err != nil {
		log.Error("failed to render page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// play handles a cell click from the HTML page. Invalid moves are ignored; the page is simply shown
// again.
func (that *handlers) play(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "play")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	row, col, err := parseCell(r.PostForm.Get("cell"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := that.session(w, r)
	if err != nil {
		log.Error("failed to get session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if _, err = that.uGame.MakeMove(r.Context(), session.ID, row, col); err != nil && !errors.Is(err, apperror.ErrInvalidMove) {
		log.Error("failed to make move", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (that *handlers) restart(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "restart")

	session, err := that.session(w, r)
	if err != nil {
		log.Error("failed to get session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if _, err = that.uGame.Restart(r.Context(), session.ID); err != nil {
		log.Error("failed to restart game", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (that *handlers) getGame(w http.ResponseWriter, r *http.Request) {
	session, err := that.session(w, r)
	if err != nil {
		that.logger.Error("failed to get session", "method", "getGame", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get the game"})
		return
	}

	writeJSON(w, http.StatusOK, view.FromSession(session))
}

func (that *handlers) move(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "move")

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	if err := that.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "row and col are required"})
		return
	}

	session, err := that.session(w, r)
	if err != nil {
		log.Error("failed to get session", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get the game"})
		return
	}

	updated, err := that.uGame.MakeMove(r.Context(), session.ID, *req.Row, *req.Col)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, view.FromSession(updated))
	case errors.Is(err, apperror.ErrInvalidMove):
		game := view.FromSession(updated)
		writeJSON(w, http.StatusConflict, errorResponse{Error: view.ErrorText(err), Game: &game})
	default:
		log.Error("failed to make move", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to make the move"})
	}
}

func (that *handlers) restartGame(w http.ResponseWriter, r *http.Request) {
	session, err := that.session(w, r)
	if err == nil {
		session, err = that.uGame.Restart(r.Context(), session.ID)
	}

	if err != nil {
		that.logger.Error("failed to restart game", "method", "restartGame", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to restart the game"})
		return
	}

	writeJSON(w, http.StatusOK, view.FromSession(session))
}

// session resolves the caller's session from the cookie, creating one (and the cookie) if needed.
func (that *handlers) session(w http.ResponseWriter, r *http.Request) (*entity.Session, error) {
	var id string
	if cookie, err := r.Cookie(pkg.SessionCookie); err == nil {
		id = cookie.Value
	}

	session, err := that.uGame.GetOrCreateSession(r.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create session: %w", err)
	}

	if session.ID != id {
		http.SetCookie(w, pkg.NewSessionCookie(session.ID, that.cookieTTL))
	}

	return session, nil
}

func parseCell(value string) (int, int, error) {
	rowStr, colStr, ok := strings.Cut(value, ",")
	if !ok {
		return 0, 0, errMalformedCell
	}

	row, err := strconv.Atoi(strings.TrimSpace(rowStr))
	if err != nil {
		return 0, 0, errMalformedCell
	}

	col, err := strconv.Atoi(strings.TrimSpace(colStr))
	if err != nil {
		return 0, 0, errMalformedCell
	}

	return row, col, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
