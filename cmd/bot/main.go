// 負荷試験・動作確認用のボットクライアント。サーバーに接続してルームへ参加し、
// スナップショットに映る障害物を見てジャンプします。
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/coder/websocket"

	"bramble/application"
	"bramble/domain"
)

type botConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"9090"`
	BotCount int    `env:"BOT_COUNT" envDefault:"3"`
}

// ジャンプ判断の先読み距離。障害物がこの距離まで迫ったら跳ぶ
const jumpLeadDistance = 120.0

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := botConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverURL := fmt.Sprintf("ws://%s:%s/ws", cfg.Addr, cfg.Port)
	slog.Info("starting bots", "count", cfg.BotCount, "server", serverURL)

	var wg sync.WaitGroup
	for i := range cfg.BotCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, serverURL, id)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, serverURL, id, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

type botState struct {
	mu        sync.Mutex
	phase     domain.GamePhase
	self      *domain.PlayerState
	obstacles []domain.ObstacleState
}

func (s *botState) applySnapshot(snapshot *domain.RoomStatePayload, sessionID domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = snapshot.Phase
	s.obstacles = snapshot.Obstacles
	s.self = nil
	sid := sessionID.Bytes()
	for i := range snapshot.Players {
		if snapshot.Players[i].SessionID == sid {
			s.self = &snapshot.Players[i]
			break
		}
	}
}

func (s *botState) applyObstacleSync(sync *domain.ObstacleSyncPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obstacles = sync.Obstacles
}

// shouldJump は自分の前方に障害物が迫っているかを判定します。
func (s *botState) shouldJump() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhasePlaying || s.self == nil {
		return false
	}
	if s.self.Flags&domain.PlayerFlagAlive == 0 || s.self.Flags&domain.PlayerFlagGrounded == 0 {
		return false
	}
	for i := range s.obstacles {
		o := &s.obstacles[i]
		gap := o.X - (s.self.X + application.PlayerWidth)
		if gap >= 0 && gap < jumpLeadDistance {
			return true
		}
	}
	return false
}

func (s *botState) currentPhase() domain.GamePhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func botSession(ctx context.Context, serverURL string, id int, logger *slog.Logger) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected")

	var sessionID domain.SessionID
	state := &botState{}
	assigned := make(chan struct{})

	// sendは受信goroutineのPong応答と判断ループの両方から呼ばれる
	var sendMu sync.Mutex
	var seq uint16
	send := func(dataType domain.DataType, subType uint8, payload []byte) error {
		sendMu.Lock()
		seq++
		frame := domain.EncodeFrame(sessionID, seq, dataType, subType, payload)
		sendMu.Unlock()
		return conn.Write(ctx, websocket.MessageBinary, frame)
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			if len(data) < domain.HeaderSize+domain.PayloadHeaderSize {
				continue
			}
			payloadHeader, err := domain.ParsePayloadHeader(data[domain.HeaderSize:])
			if err != nil {
				continue
			}
			payload := data[domain.HeaderSize+domain.PayloadHeaderSize:]

			switch payloadHeader.DataType {
			case domain.DataTypeControl:
				switch domain.ControlSubType(payloadHeader.SubType) {
				case domain.ControlSubTypeAssign:
					header, err := domain.ParseHeader(data)
					if err != nil {
						continue
					}
					sessionID = domain.SessionIDFromBytes(header.SessionID)
					logger.Info("session assigned", "sessionID", sessionID.String())
					close(assigned)
				case domain.ControlSubTypePing:
					if err := send(domain.DataTypeControl, uint8(domain.ControlSubTypePong), nil); err != nil {
						logger.Warn("failed to send pong", "err", err)
						return
					}
				case domain.ControlSubTypeError:
					if errPayload, err := domain.ParseErrorPayload(payload); err == nil {
						logger.Warn("server rejected request", "code", errPayload.Code)
					}
				}

			case domain.DataTypeState:
				switch domain.StateSubType(payloadHeader.SubType) {
				case domain.StateSubTypeRoomState:
					if snapshot, err := domain.ParseRoomStatePayload(payload); err == nil {
						state.applySnapshot(snapshot, sessionID)
					}
				case domain.StateSubTypeObstacleSync:
					if sync, err := domain.ParseObstacleSyncPayload(payload); err == nil {
						state.applyObstacleSync(sync)
					}
				case domain.StateSubTypeGameOver:
					if over, err := domain.ParseGameOverPayload(payload); err == nil {
						logger.Info("round over", "winner", over.Winner.String(), "score", over.FinalScore, "reward", over.Reward)
					}
				}
			}
		}
	}()

	// セッションID割り当てを待ってから参加
	select {
	case <-ctx.Done():
		conn.Close(websocket.StatusNormalClosure, "shutdown")
		return nil
	case err := <-readErr:
		return fmt.Errorf("read: %w", err)
	case <-assigned:
	}

	joinPayload := domain.JoinPayload{} // ゼロ値RoomID = 自動割り当て
	if err := send(domain.DataTypeControl, uint8(domain.ControlSubTypeJoin), joinPayload.Encode()); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	logger.Info("joined room")

	// 判断ループ (60FPS相当)。bot 0が進行役としてラウンドを開始する
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	waitingTicks := 0

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "shutdown")
			return nil
		case err := <-readErr:
			return fmt.Errorf("read: %w", err)
		case <-ticker.C:
			switch state.currentPhase() {
			case domain.PhaseWaiting:
				waitingTicks++
				// 参加者が揃うのを2秒待ってから開始
				if id == 0 && waitingTicks == 120 {
					if err := send(domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil); err != nil {
						return fmt.Errorf("start: %w", err)
					}
					logger.Info("requested round start")
				}
			case domain.PhasePlaying:
				waitingTicks = 0
				if state.shouldJump() {
					if err := send(domain.DataTypeInput, uint8(domain.InputSubTypeJump), nil); err != nil {
						return fmt.Errorf("jump: %w", err)
					}
				}
			case domain.PhaseEnded:
				waitingTicks++
				// 3秒後に進行役が次のラウンドへ
				if id == 0 && waitingTicks == 180 {
					waitingTicks = 0
					if err := send(domain.DataTypeControl, uint8(domain.ControlSubTypeReset), nil); err != nil {
						return fmt.Errorf("reset: %w", err)
					}
					logger.Info("requested round reset")
				}
			}
		}
	}
}
