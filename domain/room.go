package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ルームレベルの定義エラー。アプリケーション層はjoin拒否をこれらで表現します。
var (
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game already in progress")
)

// Outbound はTickの結果として送信されるフレームです。
// SessionIDがゼロ値ならルーム全員へのブロードキャストになります。
type Outbound struct {
	SessionID SessionID
	Data      []byte
}

// Broadcast はブロードキャスト用のOutboundを生成します。
func Broadcast(data []byte) Outbound {
	return Outbound{Data: data}
}

// SendTo は個別送信用のOutboundを生成します。
func SendTo(sessionID SessionID, data []byte) Outbound {
	return Outbound{SessionID: sessionID, Data: data}
}

// Application はルームに注入されるゲームロジックの境界です。
// 全メソッドはルームのgoroutineからのみ呼ばれるため、実装側の同期は不要です。
type Application interface {
	// HandleJoin は参加可否を判定し、受理時はプレイヤーを登録します。
	// 拒否時は ErrRoomFull / ErrGameInProgress を返します。
	HandleJoin(ctx context.Context, sessionID SessionID) error
	// HandleLeave はプレイヤーを取り除きます。未参加のIDに対しては何もしません。
	HandleLeave(ctx context.Context, sessionID SessionID)
	// HandleMessage は検証済みの受信フレームを状態へ適用します。
	HandleMessage(ctx context.Context, sessionID SessionID, data []byte) error
	// Tick はシミュレーションを1フレーム進め、送信すべきフレームを返します。
	Tick(ctx context.Context) []Outbound
}

// Room は1ルームのメッセージ駆動ループです。
// セッション集合の管理と配信だけを担当し、ゲーム状態はApplicationが持ちます。
type Room struct {
	ID       RoomID
	sessions map[SessionID]struct{}

	pubsub      PubSub
	application Application

	tickInterval time.Duration

	// 最後のセッションが離脱したときに呼ばれる。nilなら何もしない。
	onEmpty func(RoomID)
	// onEmpty発火後にRunを終了させるためのフラグ
	stopRequested bool
}

func NewRoom(id RoomID, pubsub PubSub, application Application) *Room {
	return &Room{
		ID:           id,
		sessions:     make(map[SessionID]struct{}),
		pubsub:       pubsub,
		application:  application,
		tickInterval: time.Second / 60,
	}
}

// SetOnEmpty は空ルーム通知のコールバックを設定します。Run開始前に呼んでください。
func (r *Room) SetOnEmpty(fn func(RoomID)) {
	r.onEmpty = fn
}

func (r *Room) Broadcast(ctx context.Context, data []byte) {
	for sessionID := range r.sessions {
		topic := Topic("session:" + sessionID.String())
		r.pubsub.Publish(ctx, topic, Message{Data: data})
	}
}

func (r *Room) SendTo(ctx context.Context, sessionID SessionID, data []byte) {
	topic := Topic("session:" + sessionID.String())
	r.pubsub.Publish(ctx, topic, Message{Data: data})
}

func (r *Room) Run(ctx context.Context) error {
	// room宛のメッセージを購読
	roomTopic := Topic("room:" + r.ID.String())
	msgCh := r.pubsub.Subscribe(roomTopic)
	defer r.pubsub.Unsubscribe(roomTopic, msgCh)

	// room制御用トピックを購読（join/leave）
	ctrlTopic := Topic("room:" + r.ID.String() + ":ctrl")
	ctrlCh := r.pubsub.Subscribe(ctrlTopic)
	defer r.pubsub.Unsubscribe(ctrlTopic, ctrlCh)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// 制御メッセージを処理（join/leave）
		CTRL_LOOP:
			for {
				select {
				case ctrl := <-ctrlCh:
					r.handleControlMessage(ctx, ctrl)
				default:
					break CTRL_LOOP
				}
			}
			if r.stopRequested {
				return nil
			}
			// 受信メッセージを処理
			// Tickの最中にはメッセージを取り込まない。1フレームはアトミックに実行される。
		RECEIVE_LOOP:
			for {
				select {
				case msg := <-msgCh:
					if _, ok := r.sessions[msg.SessionID]; !ok {
						slog.DebugContext(ctx, "room: message from non-member dropped", "sessionID", msg.SessionID)
						continue
					}
					if err := r.application.HandleMessage(ctx, msg.SessionID, msg.Data); err != nil {
						slog.WarnContext(ctx, "room handle message failed", "err", err)
					}
				default:
					break RECEIVE_LOOP
				}
			}
			// ApplicationのTick()を呼び出し、戻り値を配信
			for _, out := range r.application.Tick(ctx) {
				if out.SessionID.IsEmpty() {
					r.Broadcast(ctx, out.Data)
					continue
				}
				r.SendTo(ctx, out.SessionID, out.Data)
			}
		}
	}
}

// handleControlMessage はjoin/leave制御フレームを処理します。
func (r *Room) handleControlMessage(ctx context.Context, msg Message) {
	header, err := ParseHeader(msg.Data)
	if err != nil {
		slog.WarnContext(ctx, "room: invalid control frame", "err", err)
		return
	}
	payloadHeader, err := ParsePayloadHeader(msg.Data[HeaderSize:])
	if err != nil {
		slog.WarnContext(ctx, "room: invalid control frame", "err", err)
		return
	}
	if payloadHeader.DataType != DataTypeControl {
		slog.WarnContext(ctx, "room: non-control frame on ctrl topic", "dataType", payloadHeader.DataType)
		return
	}

	sessionID := SessionIDFromBytes(header.SessionID)
	switch ControlSubType(payloadHeader.SubType) {
	case ControlSubTypeJoin:
		r.handleJoin(ctx, sessionID)
	case ControlSubTypeLeave:
		r.handleLeave(ctx, sessionID)
	default:
		slog.WarnContext(ctx, "room: unexpected control subtype", "subType", payloadHeader.SubType)
	}
}

func (r *Room) handleJoin(ctx context.Context, sessionID SessionID) {
	// 重複joinは再適用しない
	if _, ok := r.sessions[sessionID]; ok {
		return
	}
	if err := r.application.HandleJoin(ctx, sessionID); err != nil {
		code := ErrorCodeBadRequest
		switch {
		case errors.Is(err, ErrRoomFull):
			code = ErrorCodeRoomFull
		case errors.Is(err, ErrGameInProgress):
			code = ErrorCodeGameInProgress
		}
		slog.InfoContext(ctx, "room: join rejected", "roomID", r.ID, "sessionID", sessionID, "err", err)
		r.SendTo(ctx, sessionID, EncodeErrorMessage(sessionID, code))
		return
	}
	r.sessions[sessionID] = struct{}{}
	slog.InfoContext(ctx, "room: session joined", "roomID", r.ID, "sessionID", sessionID, "sessions", len(r.sessions))
}

func (r *Room) handleLeave(ctx context.Context, sessionID SessionID) {
	if _, ok := r.sessions[sessionID]; !ok {
		return
	}
	delete(r.sessions, sessionID)
	r.application.HandleLeave(ctx, sessionID)
	slog.InfoContext(ctx, "room: session left", "roomID", r.ID, "sessionID", sessionID, "sessions", len(r.sessions))
	if len(r.sessions) == 0 && r.onEmpty != nil {
		r.onEmpty(r.ID)
		r.stopRequested = true
	}
}
