package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/tictactoe-local/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/pkg"
)

const instrumentationName = "github.com/rocketscienceinc/tictactoe-local/internal/usecase"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)
)

type sessionRepoDep interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// GameManager runs one engine per session. Every operation loads the session, works on it and
// stores it back while holding that session's lock.
type GameManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepoDep
	locks       *keyedMutex

	movesCounter    metric.Int64Counter
	finishedCounter metric.Int64Counter
}

func NewGameManager(logger *slog.Logger, sessionRepo sessionRepoDep) *GameManager {
	log := logger.With("component", "game_manager")

	movesCounter, err := meter.Int64Counter("tictactoe.moves",
		metric.WithDescription("Moves applied to the board"))
	if err != nil {
		log.Warn("failed to create moves counter", "error", err)
		movesCounter = noop.Int64Counter{}
	}

	finishedCounter, err := meter.Int64Counter("tictactoe.games.finished",
		metric.WithDescription("Games that reached a win or a draw"))
	if err != nil {
		log.Warn("failed to create finished games counter", "error", err)
		finishedCounter = noop.Int64Counter{}
	}

	return &GameManager{
		logger:      log,
		sessionRepo: sessionRepo,
		locks:       newKeyedMutex(),

		movesCounter:    movesCounter,
		finishedCounter: finishedCounter,
	}
}

// GetOrCreateSession returns the stored session with the given id. Empty, malformed or unknown ids
// get a fresh session under a newly generated id.
func (that *GameManager) GetOrCreateSession(ctx context.Context, id string) (*entity.Session, error) {
	ctx, span := tracer.Start(ctx, "GameManager.GetOrCreateSession")
	defer span.End()

	if id != "" && pkg.IsSessionID(id) {
		session, err := that.getSession(ctx, id)
		if err == nil {
			return session, nil
		}

		if !errors.Is(err, apperror.ErrSessionNotFound) {
			recordError(span, err)
			return nil, err
		}
	}

	session, err := that.createSession(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("session.id", session.ID))

	return session, nil
}

func (that *GameManager) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	ctx, span := tracer.Start(ctx, "GameManager.GetSession", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	session, err := that.getSession(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	return session, nil
}

// MakeMove applies the move for the session's current player. On an invalid move the unchanged
// session is returned together with an error wrapping apperror.ErrInvalidMove.
func (that *GameManager) MakeMove(ctx context.Context, id string, row, col int) (*entity.Session, error) {
	ctx, span := tracer.Start(ctx, "GameManager.MakeMove", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Int("move.row", row),
		attribute.Int("move.col", col),
	))
	defer span.End()

	log := that.logger.With("method", "MakeMove", "session", id)

	unlock := that.locks.Lock(id)
	defer unlock()

	session, err := that.getSession(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	mover := session.Game.Turn()

	outcome, err := session.Game.ApplyMove(row, col)
	if err != nil {
		log.Debug("move rejected", "row", row, "col", col, "error", err)
		span.SetAttributes(attribute.String("move.rejected", err.Error()))
		return session, fmt.Errorf("failed make move: %w", err)
	}

	session.Touch()
	if err = that.updateSession(ctx, session); err != nil {
		recordError(span, err)
		return nil, err
	}

	that.movesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("player", string(mover))))
	span.SetAttributes(attribute.String("game.status", string(outcome.Status)))

	if outcome.IsTerminal() {
		that.finishedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(outcome.Status)),
			attribute.String("winner", string(outcome.Winner)),
		))
		log.Info("game finished", "status", outcome.Status, "winner", outcome.Winner)
	}

	return session, nil
}

// Restart resets the session's game to an empty board with X to move.
func (that *GameManager) Restart(ctx context.Context, id string) (*entity.Session, error) {
	ctx, span := tracer.Start(ctx, "GameManager.Restart", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	unlock := that.locks.Lock(id)
	defer unlock()

	session, err := that.getSession(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	session.Game.Reset()
	session.Touch()

	if err = that.updateSession(ctx, session); err != nil {
		recordError(span, err)
		return nil, err
	}

	that.logger.Info("game restarted", "session", id)

	return session, nil
}

// EndSession drops a session that can no longer be resumed.
func (that *GameManager) EndSession(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GameManager.EndSession", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	unlock := that.locks.Lock(id)
	defer unlock()

	if err := that.sessionRepo.DeleteByID(ctx, id); err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to delete session: %w", err)
	}

	that.logger.Info("session ended", "session", id)

	return nil
}

func (that *GameManager) createSession(ctx context.Context) (*entity.Session, error) {
	session := entity.NewSession(pkg.GenerateNewSessionID())

	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	that.logger.Info("session created", "session", session.ID)

	return session, nil
}

func (that *GameManager) getSession(ctx context.Context, id string) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *GameManager) updateSession(ctx context.Context, session *entity.Session) error {
	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
