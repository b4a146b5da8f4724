// internal/infrastructure/api/exchanges/binance/ws/stream_manager.go
package ws

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/nastiakostenyuk/alert-server-v1/pkg/logger"
)

const (
	subscribeBatchSize = 10 // Binance принимает до 10 params за запрос
	initialRetryDelay  = 2 * time.Second
	maxRetryDelay      = 60 * time.Second
	writeTimeout       = 10 * time.Second
)

// StreamID — идентификатор шарда стрима
type StreamID string

// subscribeRequest — запрос подписки по протоколу Binance WS
type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// shard — одно WS-соединение со своим набором подписанных символов
type shard struct {
	id      StreamID
	mu      sync.RWMutex
	symbols map[string]bool // market в нижнем регистре -> подписан

	connMu sync.Mutex
	conn   *websocket.Conn // nil, пока соединение не установлено
}

// StreamManager держит шарды соединений с Binance Futures WS и складывает
// сырые события всех шардов в общий буфер. Буфер ограничен: при переполнении
// событие отбрасывается с предупреждением — лучше потерять свечу, чем
// заблокировать чтение сокета.
type StreamManager struct {
	streamURL string
	buffer    chan []byte
	dropped   atomic.Uint64
	requestID atomic.Int64

	mu     sync.RWMutex
	shards map[StreamID]*shard

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStreamManager создает менеджер стримов
func NewStreamManager(streamURL string, bufferSize int) *StreamManager {
	return &StreamManager{
		streamURL: streamURL,
		buffer:    make(chan []byte, bufferSize),
		shards:    make(map[StreamID]*shard),
		stopCh:    make(chan struct{}),
	}
}

// CreateStream создает шард с начальным набором подписок и запускает
// его соединение. channel — тип канала (например kline_1m).
func (m *StreamManager) CreateStream(channel string, symbols []string) StreamID {
	sh := &shard{
		id:      StreamID(uuid.New().String()),
		symbols: make(map[string]bool, len(symbols)),
	}
	for _, s := range symbols {
		sh.symbols[market(s, channel)] = true
	}

	m.mu.Lock()
	m.shards[sh.id] = sh
	m.mu.Unlock()

	m.wg.Add(1)
	go m.connectLoop(sh)

	logger.Info("🔌 StreamManager: создан шард %s (%d символов)", sh.id, len(symbols))
	return sh.id
}

// Subscribe добавляет символы в подписки шарда. Если соединение активно,
// подписка отправляется сразу, иначе уйдёт при следующем подключении.
func (m *StreamManager) Subscribe(id StreamID, channel string, symbols ...string) error {
	m.mu.RLock()
	sh, exists := m.shards[id]
	m.mu.RUnlock()
	if !exists {
		return ErrUnknownStream
	}

	fresh := make([]string, 0, len(symbols))
	sh.mu.Lock()
	for _, s := range symbols {
		topic := market(s, channel)
		if !sh.symbols[topic] {
			sh.symbols[topic] = true
			fresh = append(fresh, topic)
		}
	}
	sh.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	sh.connMu.Lock()
	conn := sh.conn
	sh.connMu.Unlock()
	if conn == nil {
		// Соединения нет — подписка уйдёт при реконнекте
		return nil
	}

	if err := m.sendSubscribe(conn, fresh); err != nil {
		logger.Warn("⚠️ StreamManager: не удалось подписать %d топиков на %s: %v", len(fresh), id, err)
		return err
	}

	logger.Info("➕ StreamManager: шард %s подписан ещё на %d топиков", id, len(fresh))
	return nil
}

// StreamSymbols возвращает подписанные markets шарда (нижний регистр,
// без суффикса канала)
func (m *StreamManager) StreamSymbols(id StreamID) map[string]bool {
	m.mu.RLock()
	sh, exists := m.shards[id]
	m.mu.RUnlock()
	if !exists {
		return nil
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	result := make(map[string]bool, len(sh.symbols))
	for topic := range sh.symbols {
		if i := strings.IndexByte(topic, '@'); i > 0 {
			result[topic[:i]] = true
		}
	}
	return result
}

// PopStreamData неблокирующе достаёт следующее событие из буфера
func (m *StreamManager) PopStreamData() ([]byte, bool) {
	select {
	case data := <-m.buffer:
		return data, true
	default:
		return nil, false
	}
}

// Stop останавливает все соединения и ждёт завершения горутин
func (m *StreamManager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	logger.Info("🛑 StreamManager: остановлен (потеряно событий: %d)", m.dropped.Load())
}

// connectLoop — WS-соединение шарда с экспоненциальным backoff при обрыве
func (m *StreamManager) connectLoop(sh *shard) {
	defer m.wg.Done()

	retryDelay := initialRetryDelay

	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		err := m.runConnection(sh)
		if err != nil {
			select {
			case <-m.stopCh:
				return
			default:
			}
			logger.Warn("⚠️ StreamManager: соединение шарда %s прервано: %v, повтор через %v", sh.id, err, retryDelay)
			select {
			case <-time.After(retryDelay):
			case <-m.stopCh:
				return
			}
			retryDelay = minDuration(retryDelay*2, maxRetryDelay)
		} else {
			retryDelay = initialRetryDelay
		}
	}
}

// runConnection устанавливает одно WS-соединение, подписывается на все
// текущие топики шарда и читает события в общий буфер
func (m *StreamManager) runConnection(sh *shard) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Закрываем ctx при получении stopCh
	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, _, err := websocket.Dial(ctx, m.streamURL, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	conn.SetReadLimit(1 << 20)

	sh.connMu.Lock()
	sh.conn = conn
	sh.connMu.Unlock()
	defer func() {
		sh.connMu.Lock()
		sh.conn = nil
		sh.connMu.Unlock()
	}()

	sh.mu.RLock()
	topics := make([]string, 0, len(sh.symbols))
	for topic := range sh.symbols {
		topics = append(topics, topic)
	}
	sh.mu.RUnlock()

	if err := m.sendSubscribe(conn, topics); err != nil {
		return err
	}

	logger.Info("✅ StreamManager: шард %s подключен, топиков: %d", sh.id, len(topics))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		select {
		case m.buffer <- data:
		default:
			// Буфер полон — событие отбрасывается
			if n := m.dropped.Add(1); n%100 == 1 {
				logger.Warn("⚠️ StreamManager: буфер событий полон, потеряно всего: %d", n)
			}
		}
	}
}

// sendSubscribe отправляет SUBSCRIBE-запросы батчами
func (m *StreamManager) sendSubscribe(conn *websocket.Conn, topics []string) error {
	for start := 0; start < len(topics); start += subscribeBatchSize {
		end := start + subscribeBatchSize
		if end > len(topics) {
			end = len(topics)
		}

		req := subscribeRequest{
			Method: "SUBSCRIBE",
			Params: topics[start:end],
			ID:     m.requestID.Add(1),
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, conn, req)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// market собирает имя топика вида btcusdt@kline_1m
func market(symbol, channel string) string {
	return strings.ToLower(symbol) + "@" + channel
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
