// internal/delivery/wsserver/server.go
package wsserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

const (
	pingCooldown = 15 * time.Second        // интервал PING-фреймов
	pollInterval = 250 * time.Millisecond  // шаг цикла соединения
	sendTimeout  = 5 * time.Second
)

// FallbackNotifier — резервный канал уведомлений
type FallbackNotifier interface {
	Send(text string)
}

// Server — WebSocket-сервер рассылки алертов.
// На каждое принятое соединение работает собственный цикл: по расписанию
// шлёт PING, иначе разбирает общую очередь алертов и доставляет очередной
// алерт всем открытым соединениям, отсекая мёртвые.
type Server struct {
	addr     string
	hub      *Hub
	queue    *PendingQueue
	fallback FallbackNotifier

	httpServer *http.Server
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewServer создает сервер рассылки
func NewServer(ip string, port int, queue *PendingQueue, fallback FallbackNotifier) *Server {
	return &Server{
		addr:     fmt.Sprintf("%s:%d", ip, port),
		hub:      NewHub(),
		queue:    queue,
		fallback: fallback,
		stopCh:   make(chan struct{}),
	}
}

// Start начинает слушать входящие соединения.
// Ошибка bind фатальна и возвращается вызывающему коду.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("ws server bind %s: %w", s.addr, err)
	}

	s.httpServer = &http.Server{Handler: http.HandlerFunc(s.handleConnection)}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ WS server: %v", err)
		}
	}()

	logger.Info("🌐 Websocket server started. Address: ws://%s", s.addr)
	return nil
}

// Stop останавливает сервер и закрывает все соединения
func (s *Server) Stop() {
	close(s.stopCh)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}

	for _, sub := range s.hub.Snapshot() {
		if s.hub.Remove(sub.id) {
			sub.transport.Close()
		}
	}

	s.wg.Wait()
	logger.Info("🛑 WS server: остановлен")
}

// HasSubscribers сообщает, есть ли живые подписчики
func (s *Server) HasSubscribers() bool {
	return s.hub.Count() > 0
}

// Enqueue ставит алерт в очередь рассылки
func (s *Server) Enqueue(payload types.AlertPayload) {
	s.queue.Push(payload)
}

// handleConnection принимает WebSocket-соединение и крутит его цикл
// до закрытия
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Warn("⚠️ WS server: не удалось принять соединение %s: %v", r.RemoteAddr, err)
		return
	}

	sub := s.hub.Add(&wsTransport{conn: conn})
	logger.Info("🔗 Новое соединение: %s (%s)", r.RemoteAddr, sub.id)

	s.relayLoop(sub)

	logger.Info("🔌 Websocket-соединение закрыто: %s (%s)", r.RemoteAddr, sub.id)
}

// relayLoop — цикл одного соединения: keepalive либо доставка из очереди
func (s *Server) relayLoop(sub *subscriber) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.tick(sub) {
				return
			}
		}
	}
}

// tick выполняет один шаг цикла. Возвращает false, когда соединение
// признано мёртвым и цикл должен завершиться.
func (s *Server) tick(sub *subscriber) (alive bool) {
	// Неожиданная ошибка одной итерации не убивает цикл соединения
	defer func() {
		if r := recover(); r != nil {
			logger.Error("💥 WS server: паника в цикле соединения %s: %v", sub.id, r)
			alive = true
		}
	}()

	if time.Since(sub.lastPing) >= pingCooldown {
		return s.sendPing(sub)
	}

	payload, ok := s.queue.Pop()
	if !ok {
		return true
	}

	return s.deliver(sub, payload)
}

// sendPing шлёт PING-фрейм с серверной меткой времени
func (s *Server) sendPing(sub *subscriber) bool {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	frame := types.PingFrame{Event: "PING", EventTime: time.Now().Unix()}
	if err := sub.transport.WriteJSON(ctx, frame); err != nil {
		s.drop(sub)
		return false
	}

	sub.lastPing = time.Now()
	return true
}

// deliver рассылает алерт всем открытым соединениям, отсекая мёртвые,
// а после прохода дублирует уведомление в резервный канал
func (s *Server) deliver(self *subscriber, payload types.AlertPayload) bool {
	frame := types.AlertFrame{
		Event:     "Alert",
		EventTime: time.Now().Unix(),
		Symbol:    payload.Symbol,
	}

	selfAlive := true
	for _, sub := range s.hub.Snapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := sub.transport.WriteJSON(ctx, frame)
		cancel()

		if err != nil {
			s.drop(sub)
			if sub.id == self.id {
				selfAlive = false
			}
		}
	}

	s.fallback.Send(payload.Symbol)
	return selfAlive
}

// drop убирает соединение из набора и закрывает его транспорт
func (s *Server) drop(sub *subscriber) {
	if s.hub.Remove(sub.id) {
		sub.transport.Close()
		logger.Info("✂️ WS server: соединение %s отключено", sub.id)
	}
}

// wsTransport — транспорт поверх websocket-соединения
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) WriteJSON(ctx context.Context, v interface{}) error {
	return wsjson.Write(ctx, t.conn, v)
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "")
}
