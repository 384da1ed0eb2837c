// Package redis caches the most recent messages of each chat and the likers
// of each post.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/GetStream/social-graph/graph"
	"github.com/redis/go-redis/v9"
)

// Redis provides caching in Redis.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.cli.Close()
}

const (
	chatPrefix = "chats"
	postPrefix = "posts"
	// maxSize is the number of messages kept per chat.
	maxSize = 10
)

func messagesKey(chatID int64) string {
	return fmt.Sprintf("%s:%d:messages", chatPrefix, chatID)
}

func messageKey(chatID, id int64) string {
	return fmt.Sprintf("%s:%d", messagesKey(chatID), id)
}

func likesKey(postID int64) string {
	return fmt.Sprintf("%s:%d:likes", postPrefix, postID)
}

// ListMessages returns the cached messages of a chat, oldest first.
func (r *Redis) ListMessages(ctx context.Context, chatID int64) ([]graph.Message, error) {
	keys, err := r.cli.ZRange(ctx, messagesKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}

	out := make([]graph.Message, 0, len(keys))
	for _, key := range keys {
		res := r.cli.HGetAll(ctx, key)
		if err := res.Err(); err != nil {
			return nil, fmt.Errorf("hgetall: %w", err)
		}
		// Evicted between the range and the read.
		if len(res.Val()) == 0 {
			continue
		}
		var msg message
		if err := res.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, msg.GraphMessage())
	}
	return out, nil
}

// InsertMessage stores the message under chats:CHAT_ID:messages:MESSAGE_ID
// and adds the key to the chat's sorted set, scored by send time.
func (r *Redis) InsertMessage(ctx context.Context, msg graph.Message) error {
	m := newMessage(msg)
	set := messagesKey(msg.ChatID)
	key := messageKey(msg.ChatID, msg.ID)

	err := r.cli.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, m)
			pipe.ZAdd(ctx, set, redis.Z{
				Score:  float64(m.SentAt),
				Member: key,
			})
			return nil
		})
		return err
	}, set)
	if err != nil {
		return fmt.Errorf("redis insert message: %w", err)
	}

	if err := r.evictOldest(ctx, set); err != nil {
		return fmt.Errorf("evict oldest: %w", err)
	}
	return nil
}

// InsertLike records that a user liked a post. Repeated likes are ignored.
func (r *Redis) InsertLike(ctx context.Context, l graph.PostLike) error {
	if err := r.cli.SAdd(ctx, likesKey(l.PostID), l.UserID).Err(); err != nil {
		return fmt.Errorf("sadd: %w", err)
	}
	return nil
}

// LikeCount returns the number of users who liked a post.
func (r *Redis) LikeCount(ctx context.Context, postID int64) (int64, error) {
	n, err := r.cli.SCard(ctx, likesKey(postID)).Result()
	if err != nil {
		return 0, fmt.Errorf("scard: %w", err)
	}
	return n, nil
}

// HasLiked reports whether the user is in the post's set of likers.
func (r *Redis) HasLiked(ctx context.Context, userID, postID int64) (bool, error) {
	ok, err := r.cli.SIsMember(ctx, likesKey(postID), strconv.FormatInt(userID, 10)).Result()
	if err != nil {
		return false, fmt.Errorf("sismember: %w", err)
	}
	return ok, nil
}

// evictOldest trims the sorted set to the newest maxSize entries.
func (r *Redis) evictOldest(ctx context.Context, set string) error {
	vals, err := r.cli.ZRange(ctx, set, 0, int64(-maxSize-1)).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	for _, key := range vals {
		_ = r.cli.ZRem(ctx, set, key).Err()
		_ = r.cli.Del(ctx, key).Err()
	}
	return nil
}
