package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
	now func() time.Time
}

// NewClient connects to Redis with retry.
func NewClient(addr string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err == nil {
			cancel()
			log.Println("Connected to Redis")
			return &Client{rdb: rdb, now: time.Now}, nil
		}
		cancel()
		log.Printf("Waiting for Redis... (%d/20)", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("redis: failed to connect after 20 attempts")
}

// Allow implements a fixed-window counter: the first hit in a window sets
// the expiry, and hits past limit are refused until the key expires.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := "ratelimit:" + key + ":" + strconv.FormatInt(c.now().UnixNano()/int64(window), 10)
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

func seatKey(busID, seat string) string { return "seat:" + busID + ":" + seat }

// HoldSeats reserves each seat for holder until ttl elapses. Seats already
// held by someone else are returned as conflicts, in which case nothing
// from this call stays held. Re-holding one's own seat refreshes its ttl.
func (c *Client) HoldSeats(ctx context.Context, busID, holder string, seats []string, ttl time.Duration) ([]string, error) {
	var taken, placed []string
	for _, s := range seats {
		key := seatKey(busID, s)
		ok, err := c.rdb.SetNX(ctx, key, holder, ttl).Result()
		if err != nil {
			c.rollback(ctx, busID, holder, placed)
			return nil, err
		}
		if ok {
			placed = append(placed, s)
			continue
		}
		owner, err := c.rdb.Get(ctx, key).Result()
		switch {
		case errors.Is(err, goredis.Nil):
			// expired between SETNX and GET; try once more
			ok, err = c.rdb.SetNX(ctx, key, holder, ttl).Result()
			if err != nil {
				c.rollback(ctx, busID, holder, placed)
				return nil, err
			}
			if ok {
				placed = append(placed, s)
				continue
			}
			taken = append(taken, s)
		case err != nil:
			c.rollback(ctx, busID, holder, placed)
			return nil, err
		case owner == holder:
			if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
				c.rollback(ctx, busID, holder, placed)
				return nil, err
			}
		default:
			taken = append(taken, s)
		}
	}
	if len(taken) > 0 {
		c.rollback(ctx, busID, holder, placed)
	}
	return taken, nil
}

func (c *Client) rollback(ctx context.Context, busID, holder string, seats []string) {
	if len(seats) == 0 {
		return
	}
	if err := c.ReleaseSeats(ctx, busID, holder, seats); err != nil {
		log.Printf("[redis] rollback of seat holds on %s failed: %v", busID, err)
	}
}

// releaseScript deletes a hold only while it still belongs to the caller.
var releaseScript = goredis.NewScript(`
local n = 0
for i, key in ipairs(KEYS) do
  if redis.call("GET", key) == ARGV[1] then
    n = n + redis.call("DEL", key)
  end
end
return n
`)

// ReleaseSeats drops holder's holds on the given seats.
func (c *Client) ReleaseSeats(ctx context.Context, busID, holder string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	keys := make([]string, len(seats))
	for i, s := range seats {
		keys[i] = seatKey(busID, s)
	}
	return releaseScript.Run(ctx, c.rdb, keys, holder).Err()
}

// SeatHolders returns seat → holder for every seat currently held.
func (c *Client) SeatHolders(ctx context.Context, busID string, seats []string) (map[string]string, error) {
	out := make(map[string]string)
	if len(seats) == 0 {
		return out, nil
	}
	keys := make([]string, len(seats))
	for i, s := range seats {
		keys[i] = seatKey(busID, s)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if holder, ok := v.(string); ok {
			out[seats[i]] = holder
		}
	}
	return out, nil
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
