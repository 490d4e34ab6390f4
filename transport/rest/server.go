package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
)

const shutdownTimeout = 5 * time.Second

type gameUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (*entity.Session, error)
	MakeMove(ctx context.Context, id string, row, col int) (*entity.Session, error)
	Restart(ctx context.Context, id string) (*entity.Session, error)
}

type Options struct {
	// CookieTTL is the lifetime of the session cookie.
	CookieTTL time.Duration
	// WebSocket, when set, is mounted at /ws.
	WebSocket http.Handler
}

type handlers struct {
	logger    *slog.Logger
	uGame     gameUseCase
	validate  *validator.Validate
	pages     *pages
	cookieTTL time.Duration
}

// NewRouter wires the web UI, the JSON API and the optional websocket endpoint.
func NewRouter(logger *slog.Logger, uGame gameUseCase, opts Options) http.Handler {
	h := &handlers{
		logger:    logger.With("component", "rest"),
		uGame:     uGame,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		pages:     loadPages(),
		cookieTTL: opts.CookieTTL,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/ping", ping)

	r.Get("/", h.index)
	r.Post("/play", h.play)
	r.Post("/restart", h.restart)

	r.Route("/api/game", func(r chi.Router) {
		r.Get("/", h.getGame)
		r.Post("/move", h.move)
		r.Post("/restart", h.restartGame)
	})

	if opts.WebSocket != nil {
		r.Handle("/ws", opts.WebSocket)
	}

	return r
}

// Start - serves handler on port until ctx is canceled, then shuts the server down gracefully.
func Start(ctx context.Context, port string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
