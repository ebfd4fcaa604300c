package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// KlineHandler receives every closed candle seen on the stream
type KlineHandler func(symbol, timeframe string, candle Candle)

// StreamSubscription names one symbol/timeframe kline stream
type StreamSubscription struct {
	Symbol    string
	Timeframe string
}

// Stream consumes combined kline WebSocket streams and dispatches closed
// candles to a handler. Forming candles are ignored; the REST client is
// the source of truth for full history.
type Stream struct {
	baseURL string
	subs    []StreamSubscription
	handler KlineHandler
	logger  zerolog.Logger
}

// NewStream creates a kline stream. baseURL defaults to the Binance
// combined-stream endpoint when empty.
func NewStream(baseURL string, subs []StreamSubscription, handler KlineHandler, logger zerolog.Logger) *Stream {
	if baseURL == "" {
		baseURL = "wss://stream.binance.com:9443"
	}
	return &Stream{
		baseURL: baseURL,
		subs:    subs,
		handler: handler,
		logger:  logger.With().Str("component", "kline-stream").Logger(),
	}
}

func (s *Stream) streamURL() string {
	names := make([]string, 0, len(s.subs))
	for _, sub := range s.subs {
		names = append(names, fmt.Sprintf("%s@kline_%s", strings.ToLower(sub.Symbol), sub.Timeframe))
	}
	return fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(names, "/"))
}

// Run connects and reads until the context is cancelled, reconnecting
// after connection loss.
func (s *Stream) Run(ctx context.Context) {
	wsURL := s.streamURL()

	for {
		if ctx.Err() != nil {
			return
		}

		s.logger.Info().Int("streams", len(s.subs)).Msg("connecting kline stream")

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("stream connection failed, retrying in 5s")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		s.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Msg("stream connection lost, reconnecting in 3s")
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info().Msg("stream closed normally")
			} else if ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("stream read error")
			}
			return
		}
		s.handleMessage(message)
	}
}

// combinedKlineEvent is the combined-stream envelope for kline events
type combinedKlineEvent struct {
	Data struct {
		EventType string `json:"e"`
		Symbol    string `json:"s"`
		Kline     struct {
			OpenTime  int64  `json:"t"`
			CloseTime int64  `json:"T"`
			Interval  string `json:"i"`
			Open      string `json:"o"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Close     string `json:"c"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

func (s *Stream) handleMessage(message []byte) {
	var event combinedKlineEvent
	if err := json.Unmarshal(message, &event); err != nil {
		s.logger.Debug().Err(err).Msg("skipping unparsable stream message")
		return
	}
	if event.Data.EventType != "kline" || !event.Data.Kline.Closed {
		return
	}

	k := event.Data.Kline
	candle := Candle{
		OpenTime:  k.OpenTime,
		Open:      parseFloat(k.Open),
		High:      parseFloat(k.High),
		Low:       parseFloat(k.Low),
		Close:     parseFloat(k.Close),
		Volume:    parseFloat(k.Volume),
		CloseTime: k.CloseTime,
	}
	s.handler(event.Data.Symbol, k.Interval, candle)
}
