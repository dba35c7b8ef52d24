package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/medication-adherence/internal/logging"
	"github.com/iliyamo/medication-adherence/internal/model"
)

// CachedUserLookup keeps successful user lookups in Redis for ttl. A deleted
// user keeps passing the gate until the entry expires. Misses and store
// errors are never cached.
type CachedUserLookup struct {
	next   UserLookup
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCachedUserLookup wraps next. It returns next itself when rdb is nil or
// ttl is not positive, leaving the strict per-request check in place.
func NewCachedUserLookup(next UserLookup, rdb *redis.Client, ttl time.Duration) UserLookup {
	if rdb == nil || ttl <= 0 {
		return next
	}
	return &CachedUserLookup{next: next, rdb: rdb, ttl: ttl, prefix: "authuser"}
}

type cachedUser struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (l *CachedUserLookup) key(id uint64) string {
	return l.prefix + ":" + strconv.FormatUint(id, 10)
}

func (l *CachedUserLookup) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	bs, err := l.rdb.Get(ctx, l.key(id)).Bytes()
	if err == nil {
		var cu cachedUser
		if json.Unmarshal(bs, &cu) == nil {
			return &model.User{ID: cu.ID, Name: cu.Name, Email: cu.Email, Role: cu.Role, CreatedAt: cu.CreatedAt, UpdatedAt: cu.UpdatedAt}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logging.Warn().Err(err).Msg("auth user cache read failed")
	}

	u, err := l.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	payload, _ := json.Marshal(cachedUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt})
	if err := l.rdb.Set(ctx, l.key(id), payload, l.ttl).Err(); err != nil {
		logging.Warn().Err(err).Msg("auth user cache write failed")
	}
	return u, nil
}
