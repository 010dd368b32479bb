package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// MoveRepository is the append-only move history of each match.
type MoveRepository interface {
	Append(ctx context.Context, roomCode string, move entity.Move) error
	List(ctx context.Context, roomCode string) ([]entity.Move, error)
}

type dbMove struct {
	client *redis.Client
}

func NewMoveRepository(client *redis.Client) MoveRepository {
	return &dbMove{
		client: client,
	}
}

func movesKey(roomCode string) string {
	return matchKey(roomCode) + ":moves"
}

func (that *dbMove) Append(ctx context.Context, roomCode string, move entity.Move) error {
	moveJSON, err := json.Marshal(move)
	if err != nil {
		return fmt.Errorf("failed to marshal move: %w", err)
	}

	if err = that.client.RPush(ctx, movesKey(roomCode), moveJSON).Err(); err != nil {
		return fmt.Errorf("failed to append move: %w", err)
	}

	return nil
}

func (that *dbMove) List(ctx context.Context, roomCode string) ([]entity.Move, error) {
	values, err := that.client.LRange(ctx, movesKey(roomCode), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list moves: %w", err)
	}

	moves := make([]entity.Move, 0, len(values))
	for _, value := range values {
		var move entity.Move
		if err = json.Unmarshal([]byte(value), &move); err != nil {
			return nil, fmt.Errorf("failed to unmarshal move: %w", err)
		}

		moves = append(moves, move)
	}

	return moves, nil
}
