package translate

import (
	"errors"
	"fmt"
	"os"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// Cache memoizes title translations across runs.
type Cache interface {
	Get(title string) (string, bool)
	Set(title, english string) error
	Close() error
}

// MemoryCache is a process-local Cache for tests and cache-disabled runs.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]string)}
}

func (c *MemoryCache) Get(title string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[title]
	return v, ok
}

func (c *MemoryCache) Set(title, english string) error {
	c.mu.Lock()
	c.m[title] = english
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error { return nil }

// badgerLogrusAdapter implements badger.Logger on a logrus entry.
type badgerLogrusAdapter struct {
	*logrus.Entry
}

func (l badgerLogrusAdapter) Errorf(f string, v ...interface{})   { l.Entry.Errorf(f, v...) }
func (l badgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }
func (l badgerLogrusAdapter) Infof(f string, v ...interface{})    { l.Entry.Debugf(f, v...) }
func (l badgerLogrusAdapter) Debugf(f string, v ...interface{})   { l.Entry.Debugf(f, v...) }

// BadgerCache persists translations in a BadgerDB directory so repeated
// prober runs never re-resolve the same title.
type BadgerCache struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerCache opens (or creates) the cache database at dir.
func NewBadgerCache(dir string, logger *logrus.Logger) (*BadgerCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	log := logger.WithField("component", "translate-cache")
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogrusAdapter{log.WithField("subsystem", "badgerdb")}).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open translation cache at %s: %w", dir, err)
	}
	log.WithField("dir", dir).Debug("Translation cache opened")
	return &BadgerCache{db: db, log: log}, nil
}

func (c *BadgerCache) Get(title string) (string, bool) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(title))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false
	}
	if err != nil {
		c.log.WithError(err).WithField("title", title).Warn("Cache read failed")
		return "", false
	}
	return string(val), true
}

func (c *BadgerCache) Set(title, english string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(title), []byte(english))
	})
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}
