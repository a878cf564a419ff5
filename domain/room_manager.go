package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrUnknownRoom       = errors.New("unknown room")
	ErrManagerNotStarted = errors.New("room manager is not started")
)

// RoomManager はセッションへのルーム割り当てとルームのライフサイクルを担当します。
type RoomManager interface {
	// GetRoom はセッションにデフォルトルームを割り当てます。
	GetRoom(ctx context.Context, sessionID SessionID) (RoomID, error)
	// EnsureRoom は指定ルームを必要なら作成して起動し、確定したRoomIDを返します。
	// ゼロ値のRoomIDはデフォルトルームに解決されます。
	EnsureRoom(ctx context.Context, roomID RoomID) (RoomID, error)
}

// NewApplicationFunc はルームごとのApplicationを生成します。
type NewApplicationFunc func(roomID RoomID) Application

// SimpleRoomManager はプロセス内のルーム台帳です。
// デフォルトルームは常駐し、明示IDのルームは最後のセッションが抜けると破棄されます。
type SimpleRoomManager struct {
	mu            sync.Mutex
	pubsub        PubSub
	newApp        NewApplicationFunc
	defaultRoomID RoomID
	rooms         map[RoomID]*Room

	runCtx context.Context
}

var _ RoomManager = (*SimpleRoomManager)(nil)

func NewSimpleRoomManager(pubsub PubSub, newApp NewApplicationFunc, defaultRoomID RoomID) *SimpleRoomManager {
	return &SimpleRoomManager{
		pubsub:        pubsub,
		newApp:        newApp,
		defaultRoomID: defaultRoomID,
		rooms:         make(map[RoomID]*Room),
	}
}

// Start はデフォルトルームを起動します。以後のルームはこのctxの下で動きます。
func (m *SimpleRoomManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCtx != nil {
		return nil
	}
	m.runCtx = ctx
	m.startRoomLocked(ctx, m.defaultRoomID, false)
	return nil
}

func (m *SimpleRoomManager) GetRoom(ctx context.Context, sessionID SessionID) (RoomID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCtx == nil {
		return RoomID{}, ErrManagerNotStarted
	}
	return m.defaultRoomID, nil
}

func (m *SimpleRoomManager) EnsureRoom(ctx context.Context, roomID RoomID) (RoomID, error) {
	if roomID.IsEmpty() {
		roomID = m.defaultRoomID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCtx == nil {
		return RoomID{}, ErrManagerNotStarted
	}
	if _, ok := m.rooms[roomID]; ok {
		return roomID, nil
	}
	m.startRoomLocked(m.runCtx, roomID, true)
	return roomID, nil
}

// NumRooms は稼働中のルーム数を返します。
func (m *SimpleRoomManager) NumRooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func (m *SimpleRoomManager) startRoomLocked(ctx context.Context, roomID RoomID, removable bool) {
	room := NewRoom(roomID, m.pubsub, m.newApp(roomID))
	if removable {
		room.SetOnEmpty(m.removeRoom)
	}
	m.rooms[roomID] = room
	go func() {
		if err := room.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "room exited with error", "roomID", roomID, "err", err)
		}
	}()
	slog.InfoContext(ctx, "room started", "roomID", roomID)
}

// removeRoom はroomのgoroutineから呼ばれます。台帳から外した後、
// ループ側は自身のRunを終了します。
func (m *SimpleRoomManager) removeRoom(roomID RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	slog.Info("room removed", "roomID", roomID)
}
