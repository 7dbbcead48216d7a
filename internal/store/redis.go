package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scrumbot/internal/common/config"
	"scrumbot/internal/common/errors"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/models"
)

const (
	keyPrefix = "scrumbot:session:"

	fieldSidebarOpen = "sidebar_open"
	fieldLoggedIn    = "logged_in"
	fieldUser        = "user"
)

var toggleScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], ARGV[1])
if v == '1' then v = '0' else v = '1' end
redis.call('HSET', KEYS[1], ARGV[1], v)
return v
`)

// RedisStore keeps the session in a redis hash and announces every write on
// a pub/sub channel so several terminals share one session.
type RedisStore struct {
	client  *redis.Client
	key     string
	channel string
	logger  logger.Logger
}

// NewRedisStore connects and pings the configured redis.
func NewRedisStore(ctx context.Context, cfg config.SessionConfig, log logger.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.NewSessionStoreError(fmt.Errorf("redis ping failed: %w", err))
	}
	return NewRedisStoreWithClient(rdb, cfg.Name, log), nil
}

// NewRedisStoreWithClient wraps an existing client. The store owns it from now on.
func NewRedisStoreWithClient(rdb *redis.Client, name string, log logger.Logger) *RedisStore {
	if name == "" {
		name = "default"
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	key := keyPrefix + name
	return &RedisStore{
		client:  rdb,
		key:     key,
		channel: key + ":events",
		logger:  log.With(map[string]interface{}{"session": name}),
	}
}

func (r *RedisStore) Get(ctx context.Context) (State, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return State{}, errors.NewSessionStoreError(err)
	}
	return decodeState(values), nil
}

func (r *RedisStore) SetSidebarOpen(ctx context.Context, open bool) (State, error) {
	if err := r.client.HSet(ctx, r.key, fieldSidebarOpen, flag(open)).Err(); err != nil {
		return State{}, errors.NewSessionStoreError(err)
	}
	return r.publish(ctx)
}

func (r *RedisStore) ToggleSidebar(ctx context.Context) (State, error) {
	if err := toggleScript.Run(ctx, r.client, []string{r.key}, fieldSidebarOpen).Err(); err != nil {
		return State{}, errors.NewSessionStoreError(err)
	}
	return r.publish(ctx)
}

func (r *RedisStore) Login(ctx context.Context, user models.User) (State, error) {
	if err := validateUser(user); err != nil {
		return State{}, err
	}
	data, err := json.Marshal(user)
	if err != nil {
		return State{}, fmt.Errorf("marshal user: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, fieldLoggedIn, flag(true), fieldUser, string(data)).Err(); err != nil {
		return State{}, errors.NewSessionStoreError(err)
	}
	return r.publish(ctx)
}

func (r *RedisStore) Logout(ctx context.Context) (State, error) {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, fieldLoggedIn, flag(false))
		pipe.HDel(ctx, r.key, fieldUser)
		return nil
	})
	if err != nil {
		return State{}, errors.NewSessionStoreError(err)
	}
	return r.publish(ctx)
}

func (r *RedisStore) Subscribe(ctx context.Context) (<-chan State, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.NewSessionStoreError(err)
	}

	current, err := r.Get(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan State, 1)
	out <- current
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var s State
				if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
					r.logger.Warn("Dropping malformed session event", map[string]interface{}{
						"error": err,
					})
					continue
				}
				offer(out, s)
			}
		}
	}()
	return out, nil
}

func (r *RedisStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// publish reads the state back and announces it.
func (r *RedisStore) publish(ctx context.Context) (State, error) {
	s, err := r.Get(ctx)
	if err != nil {
		return State{}, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return State{}, fmt.Errorf("marshal state: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn("Failed to publish session event", map[string]interface{}{
			"error": err,
		})
	}
	return s, nil
}

func decodeState(values map[string]string) State {
	s := State{
		SidebarOpen: values[fieldSidebarOpen] == "1",
		LoggedIn:    values[fieldLoggedIn] == "1",
	}
	if raw, ok := values[fieldUser]; ok && s.LoggedIn {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			s.User = &u
		}
	}
	return s
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
