package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type MatchRepository interface {
	Create(ctx context.Context, match *entity.Match) error
	CreateOrUpdate(ctx context.Context, match *entity.Match) error
	GetByCode(ctx context.Context, roomCode string) (*entity.Match, error)
	Exists(ctx context.Context, roomCode string) (bool, error)
	ListByPlayer(ctx context.Context, playerID string) ([]*entity.Match, error)
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

func matchKey(roomCode string) string {
	return "match:" + roomCode
}

func playerMatchesKey(playerID string) string {
	return "player:" + playerID + ":matches"
}

// Create - stores a new match, failing with ErrRoomAlreadyExists when the code is taken.
func (that *dbMatch) Create(ctx context.Context, match *entity.Match) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	created, err := that.client.SetNX(ctx, matchKey(match.RoomCode), matchJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	if !created {
		return apperror.ErrRoomAlreadyExists
	}

	if err = that.client.SAdd(ctx, playerMatchesKey(match.Player1), match.RoomCode).Err(); err != nil {
		return fmt.Errorf("failed to index match for player: %w", err)
	}

	return nil
}

func (that *dbMatch) CreateOrUpdate(ctx context.Context, match *entity.Match) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKey(match.RoomCode), matchJSON, 0)
		pipe.SAdd(ctx, playerMatchesKey(match.Player1), match.RoomCode)
		if match.Player2 != "" {
			pipe.SAdd(ctx, playerMatchesKey(match.Player2), match.RoomCode)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set match: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByCode(ctx context.Context, roomCode string) (*entity.Match, error) {
	response, err := that.client.Get(ctx, matchKey(roomCode)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match by code: %w", err)
	}

	var match entity.Match
	if err = json.Unmarshal([]byte(response), &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &match, nil
}

func (that *dbMatch) Exists(ctx context.Context, roomCode string) (bool, error) {
	count, err := that.client.Exists(ctx, matchKey(roomCode)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check match: %w", err)
	}

	return count > 0, nil
}

// ListByPlayer - matches where playerID holds a seat, newest first.
func (that *dbMatch) ListByPlayer(ctx context.Context, playerID string) ([]*entity.Match, error) {
	codes, err := that.client.SMembers(ctx, playerMatchesKey(playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list player matches: %w", err)
	}

	if len(codes) == 0 {
		return []*entity.Match{}, nil
	}

	keys := make([]string, 0, len(codes))
	for _, code := range codes {
		keys = append(keys, matchKey(code))
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get player matches: %w", err)
	}

	matches := make([]*entity.Match, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var match entity.Match
		if err = json.Unmarshal([]byte(raw), &match); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match: %w", err)
		}

		matches = append(matches, &match)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	return matches, nil
}
