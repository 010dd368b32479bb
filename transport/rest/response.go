package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type gameData struct {
	RoomCode     string        `json:"room_code"`
	Player1      string        `json:"player1"`
	Status       entity.Status `json:"status"`
	WebSocketURL string        `json:"websocket_url"`
}

type historyEntry struct {
	RoomCode    string        `json:"room_code"`
	Player1     string        `json:"player1"`
	Player2     string        `json:"player2,omitempty"`
	Board       string        `json:"board"`
	Status      entity.Status `json:"status"`
	Winner      string        `json:"winner,omitempty"`
	CurrentTurn string        `json:"current_turn,omitempty"`
	Moves       []entity.Move `json:"moves"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (that *Server) newGameData(match *entity.Match) gameData {
	return gameData{
		RoomCode:     match.RoomCode,
		Player1:      match.Player1,
		Status:       match.Status,
		WebSocketURL: that.publicWSURL + "/ws/game/" + match.RoomCode + "/",
	}
}

func newHistory(history []service.MatchHistory) []historyEntry {
	entries := make([]historyEntry, 0, len(history))
	for _, item := range history {
		moves := item.Moves
		if moves == nil {
			moves = []entity.Move{}
		}

		entries = append(entries, historyEntry{
			RoomCode:    item.Match.RoomCode,
			Player1:     item.Match.Player1,
			Player2:     item.Match.Player2,
			Board:       item.Match.Board.String(),
			Status:      item.Match.Status,
			Winner:      item.Match.Winner,
			CurrentTurn: item.Match.Turn,
			Moves:       moves,
			CreatedAt:   item.Match.CreatedAt,
			UpdatedAt:   item.Match.UpdatedAt,
		})
	}

	return entries
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, code int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func (that *Server) success(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(that.logger, w, code, response{Status: statusSuccess, Message: message, Data: data})
}

func (that *Server) fail(w http.ResponseWriter, code int, message string) {
	writeJSON(that.logger, w, code, response{Status: statusError, Message: message})
}
