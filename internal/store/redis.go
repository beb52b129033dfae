package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"momentum-signal-go/internal/models"

	"github.com/redis/go-redis/v9"
)

const signalChannel = "signal_events"

// RedisStore caches fetched candle ranges and fans triggered signals out to
// SSE subscribers via pub/sub. The cache is an optimization only: every
// failure degrades to a direct fetch.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(opts *redis.Options, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(opts)
	return &RedisStore{client: rdb, ttl: ttl}
}

func quoteKey(ticker string, start, end time.Time) string {
	return fmt.Sprintf("quotes:%s:%s:%s",
		ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// GetCandles returns a cached range, or ok=false on a miss or cache error.
func (s *RedisStore) GetCandles(ctx context.Context, ticker string, start, end time.Time) ([]models.Candle, bool) {
	val, err := s.client.Get(ctx, quoteKey(ticker, start, end)).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		log.Println("store: quote cache get failed:", err)
		return nil, false
	}

	var candles []models.Candle
	if err := json.Unmarshal([]byte(val), &candles); err != nil {
		return nil, false
	}
	return candles, true
}

// SetCandles stores a fetched range with the configured TTL.
func (s *RedisStore) SetCandles(ctx context.Context, ticker string, start, end time.Time, candles []models.Candle) {
	data, err := json.Marshal(candles)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, quoteKey(ticker, start, end), data, s.ttl).Err(); err != nil {
		log.Println("store: quote cache set failed:", err)
	}
}

// PublishSignal broadcasts a triggered signal for SSE delivery.
func (s *RedisStore) PublishSignal(ctx context.Context, sig models.TriggeredSignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, signalChannel, data).Err()
}

// Subscribe returns a pub/sub subscription on the signal feed.
func (s *RedisStore) Subscribe(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, signalChannel)
}
