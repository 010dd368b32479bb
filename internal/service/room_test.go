package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

var errRedisDown = errors.New("redis down")

type mockMatchRepo struct {
	mock.Mock
}

func (that *mockMatchRepo) Create(ctx context.Context, match *entity.Match) error {
	args := that.Called(ctx, match)
	return args.Error(0)
}

func (that *mockMatchRepo) ListByPlayer(ctx context.Context, playerID string) ([]*entity.Match, error) {
	args := that.Called(ctx, playerID)
	matches, _ := args.Get(0).([]*entity.Match)
	return matches, args.Error(1)
}

type mockMoveRepo struct {
	mock.Mock
}

func (that *mockMoveRepo) List(ctx context.Context, roomCode string) ([]entity.Move, error) {
	args := that.Called(ctx, roomCode)
	moves, _ := args.Get(0).([]entity.Move)
	return moves, args.Error(1)
}

type mockSeatClaimer struct {
	mock.Mock
}

func (that *mockSeatClaimer) Join(ctx context.Context, roomCode, playerID string) (*entity.Match, error) {
	args := that.Called(ctx, roomCode, playerID)
	match, _ := args.Get(0).(*entity.Match)
	return match, args.Error(1)
}

func codes(values ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		code := values[i%len(values)]
		i++
		return code, nil
	}
}

func TestRoomService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores a pending match hosted by the caller", func(t *testing.T) {
		// Given: a repository that accepts the first code
		matches := &mockMatchRepo{}
		matches.On("Create", mock.Anything, mock.AnythingOfType("*entity.Match")).Return(nil).Once()

		svc := NewRoomService(matches, &mockMoveRepo{}, &mockSeatClaimer{}).(*roomService)
		svc.generateCode = codes("ABC123")

		// When: alice creates a room
		match, err := svc.Create(ctx, "alice")

		// Then: she hosts a pending match under the generated code
		require.NoError(t, err)
		assert.Equal(t, "ABC123", match.RoomCode)
		assert.Equal(t, "alice", match.Player1)
		assert.Equal(t, entity.StatusPending, match.Status)
		matches.AssertExpectations(t)
	})

	t.Run("Regenerates the code while it is taken", func(t *testing.T) {
		matches := &mockMatchRepo{}
		matches.On("Create", mock.Anything, mock.MatchedBy(func(m *entity.Match) bool { return m.RoomCode == "TAKEN1" })).
			Return(apperror.ErrRoomAlreadyExists).Once()
		matches.On("Create", mock.Anything, mock.MatchedBy(func(m *entity.Match) bool { return m.RoomCode == "FREE01" })).
			Return(nil).Once()

		svc := NewRoomService(matches, &mockMoveRepo{}, &mockSeatClaimer{}).(*roomService)
		svc.generateCode = codes("TAKEN1", "FREE01")

		match, err := svc.Create(ctx, "alice")

		require.NoError(t, err)
		assert.Equal(t, "FREE01", match.RoomCode)
		matches.AssertExpectations(t)
	})

	t.Run("Gives up after repeated collisions", func(t *testing.T) {
		matches := &mockMatchRepo{}
		matches.On("Create", mock.Anything, mock.Anything).Return(apperror.ErrRoomAlreadyExists)

		svc := NewRoomService(matches, &mockMoveRepo{}, &mockSeatClaimer{}).(*roomService)
		svc.generateCode = codes("TAKEN1")

		_, err := svc.Create(ctx, "alice")

		require.ErrorIs(t, err, ErrNoFreeRoomCode)
		matches.AssertNumberOfCalls(t, "Create", maxCodeAttempts)
	})

	t.Run("Storage failures are returned", func(t *testing.T) {
		matches := &mockMatchRepo{}
		matches.On("Create", mock.Anything, mock.Anything).Return(errRedisDown).Once()

		svc := NewRoomService(matches, &mockMoveRepo{}, &mockSeatClaimer{}).(*roomService)
		svc.generateCode = codes("ABC123")

		_, err := svc.Create(ctx, "alice")

		require.ErrorIs(t, err, errRedisDown)
	})
}

func TestRoomService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("Delegates to the room and keeps its error", func(t *testing.T) {
		seats := &mockSeatClaimer{}
		seats.On("Join", mock.Anything, "ABC123", "alice").Return(nil, apperror.ErrSelfJoin).Once()

		svc := NewRoomService(&mockMatchRepo{}, &mockMoveRepo{}, seats)

		_, err := svc.Join(ctx, "ABC123", "alice")

		require.ErrorIs(t, err, apperror.ErrSelfJoin)
		seats.AssertExpectations(t)
	})

	t.Run("Returns the joined match", func(t *testing.T) {
		joined := entity.NewMatch("ABC123", "alice", time.Now())
		joined.Player2 = "bob"

		seats := &mockSeatClaimer{}
		seats.On("Join", mock.Anything, "ABC123", "bob").Return(joined, nil).Once()

		svc := NewRoomService(&mockMatchRepo{}, &mockMoveRepo{}, seats)

		match, err := svc.Join(ctx, "ABC123", "bob")

		require.NoError(t, err)
		assert.Equal(t, "bob", match.Player2)
	})
}

func TestRoomService_History(t *testing.T) {
	ctx := context.Background()

	t.Run("Attaches recorded moves to each match", func(t *testing.T) {
		first := entity.NewMatch("ABC123", "alice", time.Now())
		second := entity.NewMatch("XYZ789", "bob", time.Now())
		moves := []entity.Move{{Player: "alice", Position: 4, Sequence: 1}}

		matches := &mockMatchRepo{}
		matches.On("ListByPlayer", mock.Anything, "alice").Return([]*entity.Match{first, second}, nil).Once()

		movesRepo := &mockMoveRepo{}
		movesRepo.On("List", mock.Anything, "ABC123").Return(moves, nil).Once()
		movesRepo.On("List", mock.Anything, "XYZ789").Return([]entity.Move{}, nil).Once()

		svc := NewRoomService(matches, movesRepo, &mockSeatClaimer{})

		history, err := svc.History(ctx, "alice")

		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, moves, history[0].Moves)
		assert.Empty(t, history[1].Moves)
		movesRepo.AssertExpectations(t)
	})

	t.Run("Fails when moves cannot be read", func(t *testing.T) {
		matches := &mockMatchRepo{}
		matches.On("ListByPlayer", mock.Anything, "alice").
			Return([]*entity.Match{entity.NewMatch("ABC123", "alice", time.Now())}, nil).Once()

		movesRepo := &mockMoveRepo{}
		movesRepo.On("List", mock.Anything, "ABC123").Return(nil, errRedisDown).Once()

		svc := NewRoomService(matches, movesRepo, &mockSeatClaimer{})

		_, err := svc.History(ctx, "alice")

		require.ErrorIs(t, err, errRedisDown)
	})
}
