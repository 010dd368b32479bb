package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
)

const maxCodeAttempts = 10

var ErrNoFreeRoomCode = errors.New("could not find a free room code")

type RoomService interface {
	Create(ctx context.Context, playerID string) (*entity.Match, error)
	Join(ctx context.Context, roomCode, playerID string) (*entity.Match, error)
	History(ctx context.Context, playerID string) ([]MatchHistory, error)
}

// MatchHistory - a finished or ongoing match with its recorded moves.
type MatchHistory struct {
	Match *entity.Match
	Moves []entity.Move
}

type matchRepo interface {
	Create(ctx context.Context, match *entity.Match) error
	ListByPlayer(ctx context.Context, playerID string) ([]*entity.Match, error)
}

type moveRepo interface {
	List(ctx context.Context, roomCode string) ([]entity.Move, error)
}

// seatClaimer resolves joins through the room's coordinator.
type seatClaimer interface {
	Join(ctx context.Context, roomCode, playerID string) (*entity.Match, error)
}

type roomService struct {
	matchRepo matchRepo
	moveRepo  moveRepo
	seats     seatClaimer

	generateCode func() (string, error)
	now          func() time.Time
}

func NewRoomService(matchRepo matchRepo, moveRepo moveRepo, seats seatClaimer) RoomService {
	return &roomService{
		matchRepo:    matchRepo,
		moveRepo:     moveRepo,
		seats:        seats,
		generateCode: pkg.GenerateRoomCode,
		now:          time.Now,
	}
}

// Create - stores a pending match hosted by playerID under a fresh room code.
func (that *roomService) Create(ctx context.Context, playerID string) (*entity.Match, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := that.generateCode()
		if err != nil {
			return nil, fmt.Errorf("error generating room code: %w", err)
		}

		match := entity.NewMatch(code, playerID, that.now().UTC())

		err = that.matchRepo.Create(ctx, match)
		if errors.Is(err, apperror.ErrRoomAlreadyExists) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create match in storage: %w", err)
		}

		return match, nil
	}

	return nil, ErrNoFreeRoomCode
}

func (that *roomService) Join(ctx context.Context, roomCode, playerID string) (*entity.Match, error) {
	match, err := that.seats.Join(ctx, roomCode, playerID)
	if err != nil {
		return match, fmt.Errorf("failed to join room %s: %w", roomCode, err)
	}

	return match, nil
}

func (that *roomService) History(ctx context.Context, playerID string) ([]MatchHistory, error) {
	matches, err := that.matchRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve matches from storage: %w", err)
	}

	history := make([]MatchHistory, 0, len(matches))
	for _, match := range matches {
		moves, err := that.moveRepo.List(ctx, match.RoomCode)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve moves of %s: %w", match.RoomCode, err)
		}

		history = append(history, MatchHistory{Match: match, Moves: moves})
	}

	return history, nil
}
