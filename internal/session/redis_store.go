package session

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"puntoventa/terminal/internal/domain"
)

const defaultSessionKey = "puntoventa:session"

// RedisStore persists the session in redis so it survives terminal restarts
// and can be shared by lanes pointing at the same till server.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(addr string, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{client: client, key: defaultSessionKey}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Load(ctx context.Context) (domain.Session, bool, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return domain.Session{}, false, err
	}
	return sess, true, nil
}

func (r *RedisStore) Save(ctx context.Context, sess domain.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, payload, 0).Err()
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
