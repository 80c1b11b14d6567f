package upbit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type quote struct {
	price float64
	at    time.Time
}

type wsTicker struct {
	Type       string  `json:"type"`
	Code       string  `json:"code"`
	TradePrice float64 `json:"trade_price"`
	Timestamp  int64   `json:"timestamp"`
}

// Stream: кэш последних цен из публичного WebSocket Upbit.
type Stream struct {
	url    string
	log    *zap.Logger
	dialer *websocket.Dialer

	mu     sync.RWMutex
	prices map[string]quote

	connected atomic.Bool
	done      chan struct{}
	now       func() time.Time
}

func newStream(url string, log *zap.Logger) *Stream {
	return &Stream{
		url:    url,
		log:    log,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		prices: make(map[string]quote),
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

func (c *Client) StartStream(ctx context.Context, markets []string) {
	if c.stream != nil || len(markets) == 0 {
		return
	}
	c.stream = newStream(c.cfg.WebsocketURL, c.log.Named("ws"))
	go c.stream.run(ctx, markets)
}

func (c *Client) StopStream() {
	if c.stream == nil {
		return
	}
	<-c.stream.done
}

// Last: цена, если она не старше maxAge.
func (s *Stream) Last(market string, maxAge time.Duration) (float64, bool) {
	s.mu.RLock()
	q, ok := s.prices[market]
	s.mu.RUnlock()
	if !ok || s.now().Sub(q.at) > maxAge {
		return 0, false
	}
	return q.price, true
}

func (s *Stream) Connected() bool { return s.connected.Load() }

func (s *Stream) set(market string, price float64) {
	s.mu.Lock()
	s.prices[market] = quote{price: price, at: s.now()}
	s.mu.Unlock()
}

func (s *Stream) run(ctx context.Context, markets []string) {
	defer close(s.done)

	sub, _ := sonic.Marshal([]map[string]any{
		{"ticket": uuid.NewString()},
		{"type": "ticker", "codes": markets},
		{"format": "DEFAULT"},
	})

	for {
		if ctx.Err() != nil {
			return
		}
		s.log.Info("подключение", zap.Int("markets", len(markets)))
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.log.Warn("ошибка подключения", zap.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
			s.log.Warn("ошибка подписки", zap.Error(err))
			_ = conn.Close()
			continue
		}
		s.connected.Store(true)
		s.readLoop(ctx, conn)
		s.connected.Store(false)
		_ = conn.Close()
	}
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)

	// Upbit закрывает соединение без активности ~120s
	go func() {
		t := time.NewTicker(60 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-stop:
				return
			case <-t.C:
				_ = conn.WriteMessage(websocket.TextMessage, []byte("PING"))
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("ошибка чтения", zap.Error(err))
			}
			return
		}
		var t wsTicker
		if err := sonic.Unmarshal(msg, &t); err != nil || t.Type != "ticker" || t.TradePrice <= 0 {
			continue
		}
		s.set(t.Code, t.TradePrice)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
