package authcontext

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/rs/zerolog/log"
)

// Storage keys.
const (
	SessionStartKey   = "session_start_time"
	AdminStatusPrefix = "admin_status_"
)

// Storage is origin-scoped persistent key/value storage.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// MemoryStorage keeps values for the life of the process.
type MemoryStorage struct {
	values map[string]string
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStorage) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// StorageWindow persists the local session window start in Storage as
// milliseconds since the epoch.
type StorageWindow struct {
	storage Storage
}

var _ sessions.WindowStore = (*StorageWindow)(nil)

func NewStorageWindow(storage Storage) *StorageWindow {
	return &StorageWindow{storage: storage}
}

func (w *StorageWindow) Start() (time.Time, bool) {
	v, ok, err := w.storage.Get(SessionStartKey)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read session window")
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Unreadable start times count as absent.
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (w *StorageWindow) SetStart(start time.Time) {
	if err := w.storage.Set(SessionStartKey, strconv.FormatInt(start.UnixMilli(), 10)); err != nil {
		log.Warn().Err(err).Msg("failed to store session window")
	}
}

func (w *StorageWindow) Clear() {
	if err := w.storage.Delete(SessionStartKey); err != nil {
		log.Warn().Err(err).Msg("failed to clear session window")
	}
}

func adminKey(userID string) string {
	return AdminStatusPrefix + userID
}

func deleteKeys(storage Storage, prefix string) {
	keys, err := storage.Keys(prefix)
	if err != nil {
		log.Warn().Err(err).Str("prefix", prefix).Msg("failed to list storage keys")
		return
	}
	for _, k := range keys {
		if err := storage.Delete(k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("failed to delete storage key")
		}
	}
}
