package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Member is one attached connection.
type Member interface {
	ID() string
	PlayerID() string
	Send(event Event) error
	Close()
}

type MatchStore interface {
	GetByCode(ctx context.Context, roomCode string) (*entity.Match, error)
}

type EventPublisher interface {
	Publish(roomCode string, event Event)
}

type roomEntry struct {
	mu          sync.Mutex
	coordinator *Coordinator
	members     map[string]Member
	lastActive  time.Time
	evicted     bool
}

// Registry maps room codes to coordinators and their attached members.
// The registry lock only guards the map; every room operation runs under that room's own lock.
type Registry struct {
	logger    *slog.Logger
	store     MatchStore
	recorder  Recorder
	publisher EventPublisher

	idleTimeout time.Duration
	now         func() time.Time

	mu    sync.RWMutex
	rooms map[string]*roomEntry
	loads singleflight.Group

	// last in-memory state of released rooms, kept until the store has caught up with it
	released map[string]*entity.Match
}

func NewRegistry(
	logger *slog.Logger,
	store MatchStore,
	recorder Recorder,
	publisher EventPublisher,
	idleTimeout time.Duration,
) *Registry {
	return &Registry{
		logger:      logger.With("component", "room_registry"),
		store:       store,
		recorder:    recorder,
		publisher:   publisher,
		idleTimeout: idleTimeout,
		now:         time.Now,
		rooms:       make(map[string]*roomEntry),
		released:    make(map[string]*entity.Match),
	}
}

// Lookup - fails with ErrRoomNotFound when the room was never created.
func (that *Registry) Lookup(ctx context.Context, roomCode string) error {
	_, err := that.getOrCreate(ctx, roomCode)
	return err
}

// Attach - adds member to the room, applies the attach and sends the member a full snapshot.
// A rejected attach keeps the member as an observer and returns the membership error.
func (that *Registry) Attach(ctx context.Context, roomCode string, member Member) (AttachResult, error) {
	log := that.logger.With("method", "Attach", "room_code", roomCode, "player_id", member.PlayerID(), "conn_id", member.ID())

	var result AttachResult

	err := that.withEntry(ctx, roomCode, func(entry *roomEntry) error {
		entry.members[member.ID()] = member

		var event Event
		result, event = entry.coordinator.Attach(member.PlayerID())

		if event != nil {
			that.broadcast(roomCode, entry, event)
		}

		if rejection := result.Err(); rejection != nil {
			that.sendTo(roomCode, entry, member, NewError(rejection))
		}

		that.sendTo(roomCode, entry, member, NewGameState(entry.coordinator.Snapshot()))

		return nil
	})
	if err != nil {
		return result, err
	}

	log.Info("member attached", "result", result.String())

	return result, result.Err()
}

// Join - claims the second seat on behalf of playerID and notifies attached members.
func (that *Registry) Join(ctx context.Context, roomCode, playerID string) (*entity.Match, error) {
	log := that.logger.With("method", "Join", "room_code", roomCode, "player_id", playerID)

	var snapshot *entity.Match

	err := that.withEntry(ctx, roomCode, func(entry *roomEntry) error {
		result, event := entry.coordinator.Join(playerID)
		if event != nil {
			that.broadcast(roomCode, entry, event)
		}

		snapshot = entry.coordinator.Snapshot()

		return result.Err()
	})
	if err != nil {
		return snapshot, err
	}

	log.Info("player joined")

	return snapshot, nil
}

// SubmitMove - applies the move and broadcasts the result, or sends the rejection to member only.
func (that *Registry) SubmitMove(ctx context.Context, roomCode string, member Member, position int) error {
	log := that.logger.With("method", "SubmitMove", "room_code", roomCode, "player_id", member.PlayerID(), "position", position)

	return that.withEntry(ctx, roomCode, func(entry *roomEntry) error {
		result := entry.coordinator.SubmitMove(member.PlayerID(), position)
		if result.Err != nil {
			log.Debug("move rejected", "verdict", result.Decision.Verdict.String())
			that.sendTo(roomCode, entry, member, NewError(result.Err))

			return result.Err
		}

		that.broadcast(roomCode, entry, result.Event)

		return nil
	})
}

// Leave - removes member from the room. A completed room without members is dropped.
func (that *Registry) Leave(roomCode string, member Member) {
	log := that.logger.With("method", "Leave", "room_code", roomCode, "conn_id", member.ID())

	that.mu.RLock()
	entry, ok := that.rooms[roomCode]
	that.mu.RUnlock()

	if !ok {
		return
	}

	entry.mu.Lock()
	drop := false
	if current, ok := entry.members[member.ID()]; ok && current == member {
		delete(entry.members, member.ID())
		entry.coordinator.Detach(member.PlayerID())
		entry.lastActive = that.now()

		if len(entry.members) == 0 && entry.coordinator.Snapshot().IsCompleted() {
			entry.evicted = true
			drop = true
		}
	}
	entry.mu.Unlock()

	if drop {
		that.remove(roomCode, entry)
		log.Info("completed room released")
	}
}

// Snapshot - copy of the room's current match.
func (that *Registry) Snapshot(ctx context.Context, roomCode string) (*entity.Match, error) {
	var snapshot *entity.Match

	err := that.withEntry(ctx, roomCode, func(entry *roomEntry) error {
		snapshot = entry.coordinator.Snapshot()
		return nil
	})

	return snapshot, err
}

// Members - number of members attached to roomCode.
func (that *Registry) Members(roomCode string) int {
	that.mu.RLock()
	entry, ok := that.rooms[roomCode]
	that.mu.RUnlock()

	if !ok {
		return 0
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return len(entry.members)
}

// Rooms - number of rooms currently held in memory.
func (that *Registry) Rooms() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}

// Run - evicts idle rooms every interval until ctx is done, then forgets released
// snapshots the store has caught up with.
func (that *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.Sweep()
			that.pruneReleased(ctx)
		}
	}
}

// Sweep - drops rooms without members that are completed or idle longer than the idle timeout.
func (that *Registry) Sweep() int {
	log := that.logger.With("method", "Sweep")

	that.mu.RLock()
	candidates := make(map[string]*roomEntry, len(that.rooms))
	for code, entry := range that.rooms {
		candidates[code] = entry
	}
	that.mu.RUnlock()

	now := that.now()
	evicted := 0

	for code, entry := range candidates {
		entry.mu.Lock()
		idle := now.Sub(entry.lastActive) > that.idleTimeout
		if len(entry.members) == 0 && (idle || entry.coordinator.Snapshot().IsCompleted()) {
			entry.evicted = true
		}
		drop := entry.evicted
		entry.mu.Unlock()

		if drop {
			that.remove(code, entry)
			evicted++
		}
	}

	if evicted > 0 {
		log.Info("rooms evicted", "count", evicted)
	}

	return evicted
}

// Close - closes every attached member and empties the registry.
func (that *Registry) Close() {
	that.mu.Lock()
	rooms := that.rooms
	that.rooms = make(map[string]*roomEntry)
	that.mu.Unlock()

	for _, entry := range rooms {
		entry.mu.Lock()
		entry.evicted = true
		for id, member := range entry.members {
			member.Close()
			delete(entry.members, id)
		}
		entry.mu.Unlock()
	}
}

func (that *Registry) getOrCreate(ctx context.Context, roomCode string) (*roomEntry, error) {
	that.mu.RLock()
	entry, ok := that.rooms[roomCode]
	that.mu.RUnlock()

	if ok {
		return entry, nil
	}

	loaded, err, _ := that.loads.Do(roomCode, func() (any, error) {
		that.mu.RLock()
		existing, ok := that.rooms[roomCode]
		that.mu.RUnlock()

		if ok {
			return existing, nil
		}

		match, err := that.store.GetByCode(ctx, roomCode)
		if err != nil {
			return nil, fmt.Errorf("failed to load room %s: %w", roomCode, err)
		}

		if err = match.Validate(); err != nil {
			return nil, fmt.Errorf("%w: room %s: %w", apperror.ErrInternal, roomCode, err)
		}

		that.mu.Lock()
		stale := false
		if last, ok := that.released[roomCode]; ok {
			if match.IsBehind(last) {
				match = last.Clone()
				stale = true
			} else {
				delete(that.released, roomCode)
			}
		}

		created := &roomEntry{
			coordinator: NewCoordinator(match, that.recorder),
			members:     make(map[string]Member),
			lastActive:  that.now(),
		}
		that.rooms[roomCode] = created
		that.mu.Unlock()

		if stale {
			that.logger.Warn("stored match is behind its released state, restoring from memory",
				"method", "getOrCreate", "room_code", roomCode, "status", match.Status)
			that.recorder.RecordMatch(match.Clone())
		}

		return created, nil
	})
	if err != nil {
		return nil, err
	}

	return loaded.(*roomEntry), nil
}

// withEntry runs fn under the room's lock. A panic inside fn is reported as ErrInternal
// to the caller and leaves the room usable.
func (that *Registry) withEntry(ctx context.Context, roomCode string, fn func(entry *roomEntry) error) error {
	for {
		entry, err := that.getOrCreate(ctx, roomCode)
		if err != nil {
			return err
		}

		retry, err := that.runLocked(roomCode, entry, fn)
		if retry {
			// evicted but possibly not yet unmapped by its evictor
			that.remove(roomCode, entry)
			continue
		}

		return err
	}
}

func (that *Registry) runLocked(roomCode string, entry *roomEntry, fn func(entry *roomEntry) error) (retry bool, err error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.evicted {
		return true, nil
	}

	defer func() {
		if r := recover(); r != nil {
			that.logger.Error("recovered from panic in room operation", "room_code", roomCode, "panic", r)
			err = apperror.ErrInternal
		}
	}()

	entry.lastActive = that.now()

	return false, fn(entry)
}

// broadcast delivers event to every member of entry. Caller holds entry.mu.
func (that *Registry) broadcast(roomCode string, entry *roomEntry, event Event) {
	for _, member := range entry.members {
		that.sendTo(roomCode, entry, member, event)
	}

	that.publisher.Publish(roomCode, event)
}

// sendTo delivers event to member, dropping the member when the send fails. Caller holds entry.mu.
func (that *Registry) sendTo(roomCode string, entry *roomEntry, member Member, event Event) {
	if err := member.Send(event); err != nil {
		that.logger.Warn("failed to send event, dropping member",
			"room_code", roomCode,
			"conn_id", member.ID(),
			"player_id", member.PlayerID(),
			"action", event.Name(),
			"error", err,
		)

		if current, ok := entry.members[member.ID()]; ok && current == member {
			delete(entry.members, member.ID())
			entry.coordinator.Detach(member.PlayerID())
		}

		member.Close()
	}
}

// remove unmaps an evicted entry and remembers its final state for the next load.
func (that *Registry) remove(roomCode string, entry *roomEntry) {
	last := entry.coordinator.Snapshot()

	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.rooms[roomCode]; ok && current == entry {
		delete(that.rooms, roomCode)
		that.released[roomCode] = last
	}
}

// pruneReleased drops released snapshots the store has caught up with and
// asks the recorder to persist the ones it has not.
func (that *Registry) pruneReleased(ctx context.Context) {
	log := that.logger.With("method", "pruneReleased")

	that.mu.RLock()
	released := make(map[string]*entity.Match, len(that.released))
	for code, last := range that.released {
		released[code] = last
	}
	that.mu.RUnlock()

	for code, last := range released {
		stored, err := that.store.GetByCode(ctx, code)
		if err != nil {
			log.Warn("failed to check stored match", "room_code", code, "error", err)
			continue
		}

		if stored.IsBehind(last) {
			that.recorder.RecordMatch(last.Clone())
			continue
		}

		that.mu.Lock()
		if that.released[code] == last {
			delete(that.released, code)
		}
		that.mu.Unlock()
	}
}
