// Package rediskv implements kv.Substrate on Redis.
//
// Key layout for a database named db:
//
//	db:version            schema version (string integer)
//	db:collections        set of collection names
//	db:<collection>:rows  hash of key -> value
//	db:<collection>:seq   last generated key
//
// Inserts run as one Lua script so key generation, the existence check and
// the write are atomic. The upgrade step is not transactional: Redis has no
// multi-command rollback, so a failed upgrade may leave created collections
// behind while the version stays unchanged. Re-running the upgrade is safe
// as long as it checks HasCollection first.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/roach88/taleweaver/internal/kv"
)

const (
	replyKeyExists    = "KEYEXISTS"
	replyNoCollection = "NOCOLLECTION"
)

// addScript inserts ARGV[1] under ARGV[2], or under a generated key when
// ARGV[2] is empty. KEYS: collections set, rows hash, seq counter.
var addScript = goredis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[3]) == 0 then
	return redis.error_reply('NOCOLLECTION')
end
local key = ARGV[2]
if key == '' then
	key = redis.call('INCR', KEYS[3])
	while redis.call('HEXISTS', KEYS[2], key) == 1 do
		key = redis.call('INCR', KEYS[3])
	end
else
	if redis.call('HEXISTS', KEYS[2], key) == 1 then
		return redis.error_reply('KEYEXISTS')
	end
	local cur = tonumber(redis.call('GET', KEYS[3]) or '0')
	if tonumber(key) > cur then
		redis.call('SET', KEYS[3], key)
	end
end
redis.call('HSET', KEYS[2], key, ARGV[1])
return tonumber(key)
`)

// Substrate is a Redis-backed kv.Substrate.
type Substrate struct {
	client *goredis.Client

	mu   sync.RWMutex
	name string
}

// New wraps client. The substrate owns the client and closes it on Close.
func New(client *goredis.Client) *Substrate {
	return &Substrate{client: client}
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr string) (*Substrate, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(client), nil
}

// Open implements kv.Substrate.
func (s *Substrate) Open(ctx context.Context, name string, version int, upgrade kv.UpgradeFunc) error {
	if name == "" || strings.ContainsAny(name, ": ") {
		return fmt.Errorf("invalid database name %q", name)
	}

	stored, err := s.client.Get(ctx, name+":version").Int()
	if errors.Is(err, goredis.Nil) {
		stored = 0
	} else if err != nil {
		return fmt.Errorf("open %s: get version: %w", name, err)
	}

	needsUpgrade, err := kv.CheckVersion(stored, version)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	if needsUpgrade {
		if upgrade != nil {
			tx := &upgradeTx{client: s.client, db: name}
			if err := upgrade(ctx, tx, stored, version); err != nil {
				return fmt.Errorf("open %s: upgrade %d -> %d: %w", name, stored, version, err)
			}
		}
		if err := s.client.Set(ctx, name+":version", version, 0).Err(); err != nil {
			return fmt.Errorf("open %s: set version: %w", name, err)
		}
	}

	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	return nil
}

// Add implements kv.Substrate.
func (s *Substrate) Add(ctx context.Context, collection string, key *int64, value []byte) (int64, error) {
	db, err := s.database(collection)
	if err != nil {
		return 0, err
	}

	explicit := ""
	if key != nil {
		explicit = strconv.FormatInt(*key, 10)
	}

	keys := []string{db + ":collections", rowsKey(db, collection), seqKey(db, collection)}
	id, err := addScript.Run(ctx, s.client, keys, value, explicit, collection).Int64()
	if err != nil {
		return 0, fmt.Errorf("add to %s: %w", collection, classify(err, collection))
	}
	return id, nil
}

// GetAll implements kv.Substrate.
func (s *Substrate) GetAll(ctx context.Context, collection string) ([]kv.Entry, error) {
	db, err := s.database(collection)
	if err != nil {
		return nil, err
	}
	if err := s.requireCollection(ctx, db, collection); err != nil {
		return nil, err
	}

	rows, err := s.client.HGetAll(ctx, rowsKey(db, collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	entries := make([]kv.Entry, 0, len(rows))
	for field, value := range rows {
		k, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("query %s: corrupt key %q: %w", collection, field, err)
		}
		entries = append(entries, kv.Entry{Key: k, Value: []byte(value)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Delete implements kv.Substrate.
func (s *Substrate) Delete(ctx context.Context, collection string, key int64) error {
	db, err := s.database(collection)
	if err != nil {
		return err
	}
	if err := s.requireCollection(ctx, db, collection); err != nil {
		return err
	}

	if err := s.client.HDel(ctx, rowsKey(db, collection), strconv.FormatInt(key, 10)).Err(); err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	return nil
}

// Count implements kv.Substrate.
func (s *Substrate) Count(ctx context.Context, collection string) (int, error) {
	db, err := s.database(collection)
	if err != nil {
		return 0, err
	}
	if err := s.requireCollection(ctx, db, collection); err != nil {
		return 0, err
	}

	n, err := s.client.HLen(ctx, rowsKey(db, collection)).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return int(n), nil
}

// Close closes the Redis client.
func (s *Substrate) Close() error {
	s.mu.Lock()
	s.name = ""
	s.mu.Unlock()

	err := s.client.Close()
	if errors.Is(err, goredis.ErrClosed) {
		return nil
	}
	return err
}

func (s *Substrate) database(collection string) (string, error) {
	s.mu.RLock()
	name := s.name
	s.mu.RUnlock()
	if name == "" {
		return "", kv.ErrNotOpen
	}
	if err := kv.ValidateCollectionName(collection); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Substrate) requireCollection(ctx context.Context, db, collection string) error {
	ok, err := s.client.SIsMember(ctx, db+":collections", collection).Result()
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", kv.ErrNoCollection, collection)
	}
	return nil
}

func rowsKey(db, collection string) string { return db + ":" + collection + ":rows" }
func seqKey(db, collection string) string  { return db + ":" + collection + ":seq" }

// classify maps script error replies onto kv sentinel errors.
func classify(err error, collection string) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, replyKeyExists):
		return fmt.Errorf("%w: %v", kv.ErrKeyExists, err)
	case strings.Contains(msg, replyNoCollection):
		return fmt.Errorf("%w: %s", kv.ErrNoCollection, collection)
	}
	return err
}

type upgradeTx struct {
	client *goredis.Client
	db     string
}

func (u *upgradeTx) HasCollection(ctx context.Context, name string) (bool, error) {
	ok, err := u.client.SIsMember(ctx, u.db+":collections", name).Result()
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", name, err)
	}
	return ok, nil
}

func (u *upgradeTx) CreateCollection(ctx context.Context, name string) error {
	if err := kv.ValidateCollectionName(name); err != nil {
		return err
	}
	added, err := u.client.SAdd(ctx, u.db+":collections", name).Result()
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	if added == 0 {
		return fmt.Errorf("collection %q already exists", name)
	}
	return nil
}
