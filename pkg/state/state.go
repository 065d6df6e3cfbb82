// Package state tracks which mesh resources changed between syntheses, so that a deployment
// engine only needs to apply what is new or different and delete what disappeared.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/tidwall/gjson"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/greymatter-io/meshdemo/pkg/meshobjects"
	"github.com/greymatter-io/meshdemo/pkg/wellknown"
)

var (
	logger = ctrl.Log.WithName("state")
)

// SyncState remembers a hash of every resource seen by the last call to FilterChanged.
type SyncState struct {
	sync.Mutex
	redis    redisClient
	redisKey string

	previousHashes map[string]uint64
}

// redisClient is the subset of *redis.Client a SyncState uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

func New() *SyncState {
	return &SyncState{previousHashes: make(map[string]uint64)}
}

// NewWithRedis returns a SyncState persisted under key on the Redis server at addr.
// Hashes saved by an earlier run are loaded immediately.
func NewWithRedis(ctx context.Context, addr, key string) (*SyncState, error) {
	if key == "" {
		key = DefaultKey
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logger.Info("Connected to Redis for state backup", "Addr", addr)

	ss, err := newWithClient(ctx, rdb, key)
	if err != nil {
		rdb.Close()
		return nil, err
	}
	return ss, nil
}

// newWithClient returns a SyncState backed by rdb, loaded from whatever is saved under key.
func newWithClient(ctx context.Context, rdb redisClient, key string) (*SyncState, error) {
	ss := New()
	ss.redis = rdb
	ss.redisKey = key

	data, err := rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		logger.Info("No saved state found in Redis", "Key", key)
	case err != nil:
		return nil, fmt.Errorf("failed to load state from redis: %w", err)
	default:
		loaded := make(map[string]uint64)
		if err := json.Unmarshal(data, &loaded); err != nil {
			logger.Info("Problem unmarshalling state hashes from Redis; starting fresh", "Key", key, "Error", err.Error())
		} else {
			ss.previousHashes = loaded
			logger.Info("Loaded resource hashes from Redis", "Key", key, "Count", len(loaded))
		}
	}
	return ss, nil
}

// DefaultKey is the Redis key state is stored under when none is given.
var DefaultKey = wellknown.REDIS_KEY_PREFIX + ":state"

// Key returns the properly-namespaced key of a rendered resource: <mesh>-<kind>-<name>.
func Key(obj json.RawMessage) string {
	r := gjson.GetManyBytes(obj, "meshName", "kind", "name")
	return fmt.Sprintf("%s-%s-%s", r[0].String(), r[1].String(), r[2].String())
}

// FilterChanged returns the objects that are new or differ from the last call, and the keys
// of objects that were present last time but are now gone. The stored hashes are replaced.
func (ss *SyncState) FilterChanged(objects []meshobjects.Object) (changed []meshobjects.Object, deleted []string, err error) {
	ss.Lock()
	defer ss.Unlock()

	newHashes := make(map[string]uint64)
	for _, obj := range objects {
		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, nil, err
		}
		key := Key(raw)
		hash, err := hashstructure.Hash(string(raw), hashstructure.FormatV2, nil)
		if err != nil {
			return nil, nil, err
		}
		newHashes[key] = hash
		if prev, ok := ss.previousHashes[key]; !ok || prev != hash {
			changed = append(changed, obj)
		}
	}

	for oldKey := range ss.previousHashes {
		if _, ok := newHashes[oldKey]; !ok {
			deleted = append(deleted, oldKey)
		}
	}
	sort.Strings(deleted)

	ss.previousHashes = newHashes
	logger.V(1).Info("Filtered changed resources", "Changed", len(changed), "Deleted", len(deleted))
	return changed, deleted, nil
}

// Save persists the current hashes. It is a no-op without Redis.
func (ss *SyncState) Save(ctx context.Context) error {
	if ss.redis == nil {
		return nil
	}
	ss.Lock()
	b, err := json.Marshal(ss.previousHashes)
	ss.Unlock()
	if err != nil {
		return err
	}
	if err := ss.redis.Set(ctx, ss.redisKey, b, 0).Err(); err != nil {
		logger.Error(err, "Failed to save resource state hashes to Redis", "Key", ss.redisKey)
		return err
	}
	return nil
}

func (ss *SyncState) Close() error {
	if ss.redis == nil {
		return nil
	}
	return ss.redis.Close()
}
