package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type historyMatchRepo interface {
	CreateOrUpdate(ctx context.Context, match *entity.Match) error
}

type historyMoveRepo interface {
	Append(ctx context.Context, roomCode string, move entity.Move) error
}

type historyJob struct {
	roomCode string
	move     *entity.Move
	match    *entity.Match
}

// HistoryRecorder persists moves and match snapshots on a single background worker.
// Jobs are written in the order they were recorded. Failed or overflowing jobs are logged and dropped.
type HistoryRecorder struct {
	logger       *slog.Logger
	matches      historyMatchRepo
	moves        historyMoveRepo
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan historyJob
	done   chan struct{}
}

func NewHistoryRecorder(
	logger *slog.Logger,
	matches historyMatchRepo,
	moves historyMoveRepo,
	queueSize int,
	writeTimeout time.Duration,
) *HistoryRecorder {
	recorder := &HistoryRecorder{
		logger:       logger.With("component", "history_recorder"),
		matches:      matches,
		moves:        moves,
		writeTimeout: writeTimeout,
		jobs:         make(chan historyJob, queueSize),
		done:         make(chan struct{}),
	}

	go recorder.run()

	return recorder
}

func (that *HistoryRecorder) RecordMove(roomCode string, move entity.Move) {
	that.enqueue(historyJob{roomCode: roomCode, move: &move})
}

func (that *HistoryRecorder) RecordMatch(match *entity.Match) {
	that.enqueue(historyJob{roomCode: match.RoomCode, match: match})
}

// Close - stops accepting jobs and waits until the queued ones are written.
func (that *HistoryRecorder) Close() {
	that.mu.Lock()
	if !that.closed {
		that.closed = true
		close(that.jobs)
	}
	that.mu.Unlock()

	<-that.done
}

func (that *HistoryRecorder) enqueue(job historyJob) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.closed {
		that.logger.Warn("history recorder is closed, job dropped", "room_code", job.roomCode)
		return
	}

	select {
	case that.jobs <- job:
	default:
		that.logger.Error("history queue is full, job dropped", "room_code", job.roomCode)
	}
}

func (that *HistoryRecorder) run() {
	defer close(that.done)

	for job := range that.jobs {
		that.write(job)
	}
}

func (that *HistoryRecorder) write(job historyJob) {
	log := that.logger.With("method", "write", "room_code", job.roomCode)

	ctx, cancel := context.WithTimeout(context.Background(), that.writeTimeout)
	defer cancel()

	if job.move != nil {
		if err := that.moves.Append(ctx, job.roomCode, *job.move); err != nil {
			log.Error("failed to append move", "sequence", job.move.Sequence, "error", err)
		}
	}

	if job.match != nil {
		if err := that.matches.CreateOrUpdate(ctx, job.match); err != nil {
			log.Error("failed to save match", "status", job.match.Status, "error", err)
		}
	}
}
