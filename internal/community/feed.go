// Package community keeps the live audience feed (token mentions, questions,
// viewer count) in Redis. Everything here degrades gracefully: with no Redis
// connection the feed is simply empty and the show carries on.
package community

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const feedTTL = 6 * time.Hour

// Snapshot is a point-in-time view of one show's audience feed.
type Snapshot struct {
	Mentions  map[string]int64 `json:"mentions"` // ticker -> count
	Questions []string         `json:"questions"`
	Viewers   int64            `json:"viewers"`
}

// NewRedisClient connects to Redis and pings it with a short timeout.
// Returns nil on failure so callers can run without a feed.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unavailable, community feed disabled: %v", err)
		return nil
	}
	return client
}

type Feed struct {
	rdb *redis.Client // nil disables the feed
}

func NewFeed(rdb *redis.Client) *Feed {
	return &Feed{rdb: rdb}
}

func (f *Feed) Enabled() bool {
	return f.rdb != nil
}

func mentionsKey(showID uint) string  { return fmt.Sprintf("show:%d:mentions", showID) }
func questionsKey(showID uint) string { return fmt.Sprintf("show:%d:questions", showID) }
func viewersKey(showID uint) string   { return fmt.Sprintf("show:%d:viewers", showID) }

// RecordMention bumps the mention counter for a ticker.
func (f *Feed) RecordMention(ctx context.Context, showID uint, ticker string) error {
	if f.rdb == nil {
		return nil
	}
	key := mentionsKey(showID)
	if err := f.rdb.HIncrBy(ctx, key, ticker, 1).Err(); err != nil {
		return err
	}
	return f.rdb.Expire(ctx, key, feedTTL).Err()
}

// RecordQuestion appends a community question, keeping the last 100.
func (f *Feed) RecordQuestion(ctx context.Context, showID uint, question string) error {
	if f.rdb == nil {
		return nil
	}
	key := questionsKey(showID)
	pipe := f.rdb.TxPipeline()
	pipe.RPush(ctx, key, question)
	pipe.LTrim(ctx, key, -100, -1)
	pipe.Expire(ctx, key, feedTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// SetViewers stores the current viewer count for a show.
func (f *Feed) SetViewers(ctx context.Context, showID uint, count int64) error {
	if f.rdb == nil {
		return nil
	}
	return f.rdb.Set(ctx, viewersKey(showID), count, feedTTL).Err()
}

// Viewers returns the current viewer count, 0 when unknown.
func (f *Feed) Viewers(ctx context.Context, showID uint) int64 {
	if f.rdb == nil {
		return 0
	}
	n, err := f.rdb.Get(ctx, viewersKey(showID)).Int64()
	if err != nil {
		return 0
	}
	return n
}

// Snapshot reads the whole feed for a show.
func (f *Feed) Snapshot(ctx context.Context, showID uint) (*Snapshot, error) {
	snap := &Snapshot{Mentions: map[string]int64{}}
	if f.rdb == nil {
		return snap, nil
	}

	raw, err := f.rdb.HGetAll(ctx, mentionsKey(showID)).Result()
	if err != nil {
		return nil, err
	}
	for ticker, v := range raw {
		var n int64
		fmt.Sscanf(v, "%d", &n)
		snap.Mentions[ticker] = n
	}

	questions, err := f.rdb.LRange(ctx, questionsKey(showID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	snap.Questions = questions
	snap.Viewers = f.Viewers(ctx, showID)

	return snap, nil
}
