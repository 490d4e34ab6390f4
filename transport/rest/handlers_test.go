package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-local/internal/repository"
	"github.com/rocketscienceinc/tictactoe-local/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-local/internal/view"
	"github.com/rocketscienceinc/tictactoe-local/transport/websocket"
)

type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newClient(t *testing.T) *client {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	manager := usecase.NewGameManager(logger, repository.NewMemorySessionRepository())

	return &client{
		t:       t,
		handler: NewRouter(logger, manager, Options{CookieTTL: time.Hour}),
	}
}

func (that *client) do(method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	that.t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if that.cookie != nil {
		req.AddCookie(that.cookie)
	}

	rr := httptest.NewRecorder()
	that.handler.ServeHTTP(rr, req)

	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == pkg.SessionCookie {
			that.cookie = cookie
		}
	}

	return rr
}

func (that *client) move(row, col int) (*httptest.ResponseRecorder, view.Game) {
	that.t.Helper()

	body, err := json.Marshal(map[string]int{"row": row, "col": col})
	require.NoError(that.t, err)

	rr := that.do(http.MethodPost, "/api/game/move", "application/json", strings.NewReader(string(body)))

	var game view.Game
	if rr.Code == http.StatusOK {
		require.NoError(that.t, json.Unmarshal(rr.Body.Bytes(), &game))
	}

	return rr, game
}

func TestPing(t *testing.T) {
	c := newClient(t)

	rr := c.do(http.MethodGet, "/ping", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}

func TestIndexPage(t *testing.T) {
	// Given: a browser without a session
	c := newClient(t)

	// When: the page is requested
	rr := c.do(http.MethodGet, "/", "", nil)

	// Then: the board is rendered and a session cookie is issued
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Player 1 (X)&#39;s turn")
	assert.Equal(t, 9, strings.Count(body, `name="cell"`))
	assert.Contains(t, body, `action="/restart"`)
	require.NotNil(t, c.cookie)
	assert.True(t, pkg.IsSessionID(c.cookie.Value))
}

func TestPlayForm(t *testing.T) {
	// Given: a browser with a session
	c := newClient(t)
	c.do(http.MethodGet, "/", "", nil)
	sessionID := c.cookie.Value

	// When: X clicks the center cell
	form := url.Values{"cell": {"1,1"}}
	rr := c.do(http.MethodPost, "/play", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))

	// Then: the browser is redirected back and the page shows the move
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Equal(t, sessionID, c.cookie.Value)

	page := c.do(http.MethodGet, "/", "", nil).Body.String()
	assert.Contains(t, page, "Player 2 (O)&#39;s turn")
	assert.Contains(t, page, `value="1,1" aria-label="Cell X" disabled`)

	// When: O clicks the same cell
	rr = c.do(http.MethodPost, "/play", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))

	// Then: the click is ignored
	require.Equal(t, http.StatusSeeOther, rr.Code)
	page = c.do(http.MethodGet, "/", "", nil).Body.String()
	assert.Contains(t, page, "Player 2 (O)&#39;s turn")
}

func TestPlayForm_Malformed(t *testing.T) {
	c := newClient(t)

	form := url.Values{"cell": {"center"}}
	rr := c.do(http.MethodPost, "/play", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_WinScenario(t *testing.T) {
	// Given: a fresh session
	c := newClient(t)

	// When: X(0,0) O(1,1) X(0,1) O(2,2) X(0,2)
	var game view.Game
	for _, move := range []entity.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 0, Col: 1}, {Row: 2, Col: 2}, {Row: 0, Col: 2}} {
		var rr *httptest.ResponseRecorder
		rr, game = c.move(move.Row, move.Col)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	// Then: X wins with the first row
	assert.True(t, game.GameOver)
	assert.Equal(t, "Player 1 (X) wins!", game.Status)
	assert.Equal(t, entity.StatusWin, game.Outcome.Status)
	assert.Equal(t, []entity.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}}, game.Outcome.Line)

	// When: O tries to keep playing
	rr, _ := c.move(2, 0)

	// Then: the move is rejected with a conflict and the outcome is unchanged
	require.Equal(t, http.StatusConflict, rr.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "game is already finished", resp.Error)
	require.NotNil(t, resp.Game)
	assert.Equal(t, entity.PlayerX, resp.Game.Outcome.Winner)

	// When: the game is restarted
	rr = c.do(http.MethodPost, "/api/game/restart", "", nil)

	// Then: the board is empty and X moves first
	require.Equal(t, http.StatusOK, rr.Code)
	var restarted view.Game
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &restarted))
	assert.False(t, restarted.GameOver)
	assert.Equal(t, entity.PlayerX, restarted.Turn)
	assert.Equal(t, "Player 1 (X)'s turn", restarted.Status)
}

func TestAPI_InvalidMoves(t *testing.T) {
	t.Run("Occupied cell", func(t *testing.T) {
		c := newClient(t)
		rr, _ := c.move(0, 0)
		require.Equal(t, http.StatusOK, rr.Code)

		rr, _ = c.move(0, 0)

		require.Equal(t, http.StatusConflict, rr.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "cell is already occupied", resp.Error)
		assert.Equal(t, entity.PlayerO, resp.Game.Turn)
	})

	t.Run("Out of range", func(t *testing.T) {
		c := newClient(t)

		rr, _ := c.move(3, 0)

		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "cell is out of range")
	})

	t.Run("Missing coordinates", func(t *testing.T) {
		c := newClient(t)

		rr := c.do(http.MethodPost, "/api/game/move", "application/json", strings.NewReader(`{"row": 0}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		c := newClient(t)

		rr := c.do(http.MethodPost, "/api/game/move", "application/json", strings.NewReader(`{`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAPI_GetGame(t *testing.T) {
	// Given: a session with one move
	c := newClient(t)
	_, played := c.move(2, 2)

	// When: the game is fetched
	rr := c.do(http.MethodGet, "/api/game", "", nil)

	// Then: the same session is returned
	require.Equal(t, http.StatusOK, rr.Code)
	var game view.Game
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &game))
	assert.Equal(t, played.SessionID, game.SessionID)
	assert.Equal(t, entity.CellX, game.Cells[2][2].Value)
	assert.True(t, game.Cells[2][2].Disabled)
}

func TestParseCell(t *testing.T) {
	row, col, err := parseCell("2, 1")
	require.NoError(t, err)
	assert.Equal(t, 2, row)
	assert.Equal(t, 1, col)

	for _, value := range []string{"", "1", "a,b", "1,"} {
		_, _, err = parseCell(value)
		require.ErrorIs(t, err, errMalformedCell, value)
	}
}

func TestRouter_WebSocket(t *testing.T) {
	// Given: a router serving the websocket endpoint behind its middleware
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	manager := usecase.NewGameManager(logger, repository.NewMemorySessionRepository())
	router := NewRouter(logger, manager, Options{
		CookieTTL: time.Hour,
		WebSocket: websocket.New(logger, manager, time.Hour),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	// and a session started from the web page with one move
	page, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	_ = page.Body.Close()

	var cookie *http.Cookie
	for _, c := range page.Cookies() {
		if c.Name == pkg.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	_, err = manager.MakeMove(context.Background(), cookie.Value, 1, 1)
	require.NoError(t, err)

	// When: the browser opens /ws with the same cookie
	header := http.Header{}
	header.Add("Cookie", (&http.Cookie{Name: cookie.Name, Value: cookie.Value}).String())
	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// Then: the page's game is pushed
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var state websocket.Response
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, websocket.ActionState, state.Action)
	require.NotNil(t, state.Payload.Game)
	assert.Equal(t, cookie.Value, state.Payload.Game.SessionID)
	assert.Equal(t, entity.CellX, state.Payload.Game.Cells[1][1].Value)
}
