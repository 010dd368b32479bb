package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
)

type ctxKey struct{}

type joinRequest struct {
	RoomCode string `json:"room_code"`
}

func playerFrom(ctx context.Context) string {
	playerID, _ := ctx.Value(ctxKey{}).(string)
	return playerID
}

// authenticate - resolves the caller from the bearer token.
func (that *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := service.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			that.fail(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		playerID, err := that.auth.Verify(token)
		if err != nil {
			that.logger.Debug("rejected token", "error", err)
			that.fail(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, playerID)))
	})
}

func (that *Server) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write pong", "error", err)
	}
}

func (that *Server) createGame(w http.ResponseWriter, r *http.Request) {
	playerID := playerFrom(r.Context())
	log := that.logger.With("method", "createGame", "player_id", playerID)

	match, err := that.rooms.Create(r.Context(), playerID)
	if err != nil {
		log.Error("failed to create game", "error", err)
		that.fail(w, http.StatusInternalServerError, "Failed to create game")
		return
	}

	log.Info("game created", "room_code", match.RoomCode)
	that.success(w, http.StatusCreated, "Game created successfully", that.newGameData(match))
}

func (that *Server) joinGame(w http.ResponseWriter, r *http.Request) {
	playerID := playerFrom(r.Context())
	log := that.logger.With("method", "joinGame", "player_id", playerID)

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomCode == "" {
		that.fail(w, http.StatusBadRequest, "Room code is required")
		return
	}

	match, err := that.rooms.Join(r.Context(), req.RoomCode, playerID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrRoomNotFound):
		that.fail(w, http.StatusNotFound, "Game not found")
		return
	case errors.Is(err, apperror.ErrSelfJoin):
		that.fail(w, http.StatusBadRequest, "You cannot join your own game")
		return
	case errors.Is(err, apperror.ErrRoomFull):
		that.fail(w, http.StatusBadRequest, "Game is already in progress or completed")
		return
	default:
		log.Error("failed to join game", "room_code", req.RoomCode, "error", err)
		that.fail(w, http.StatusInternalServerError, "Failed to join game")
		return
	}

	log.Info("game joined", "room_code", match.RoomCode)
	that.success(w, http.StatusOK, "Joined game successfully", that.newGameData(match))
}

func (that *Server) history(w http.ResponseWriter, r *http.Request) {
	playerID := playerFrom(r.Context())

	history, err := that.rooms.History(r.Context(), playerID)
	if err != nil {
		that.logger.Error("failed to load history", "method", "history", "player_id", playerID, "error", err)
		that.fail(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	that.success(w, http.StatusOK, "History retrieved successfully", newHistory(history))
}
