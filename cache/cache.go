package cache

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/flickyourselfon/railhint/config"
)

// The cache holds large objects that are expensive to build, such as parsed
// and built level files, so that tools serving many searches build them
// only once.

type cache struct {
	sync.Mutex
	objects map[string]any
}

type loadFunc func(cfg *config.Config, key string) (any, error)

// GlobalObjectCache is the process-wide cache.
var (
	GlobalObjectCache *cache
	// guards the GlobalObjectCache pointer, not its contents
	globalMu sync.Mutex
)

func (c *cache) load(cfg *config.Config, key string, loadFunc loadFunc) error {
	log.Debug().Str("key", key).Msg("loading-into-cache")

	obj, err := loadFunc(cfg, key)
	if err != nil {
		return err
	}
	c.objects[key] = obj
	return nil
}

func (c *cache) get(cfg *config.Config, key string, loadFunc loadFunc) (any, error) {
	c.Lock()
	defer c.Unlock()
	obj, ok := c.objects[key]
	if !ok {
		if err := c.load(cfg, key, loadFunc); err != nil {
			return nil, err
		}
		return c.objects[key], nil
	}
	log.Debug().Str("key", key).Msg("getting-obj-from-cache")
	return obj, nil
}

func (c *cache) evict(key string) {
	c.Lock()
	defer c.Unlock()
	delete(c.objects, key)
}

// CreateGlobalObjectCache replaces the global cache with an empty one.
func CreateGlobalObjectCache() {
	globalMu.Lock()
	defer globalMu.Unlock()
	GlobalObjectCache = &cache{objects: make(map[string]any)}
}

func global() *cache {
	globalMu.Lock()
	defer globalMu.Unlock()
	if GlobalObjectCache == nil {
		GlobalObjectCache = &cache{objects: make(map[string]any)}
	}
	return GlobalObjectCache
}

func Load(cfg *config.Config, key string, loadFunc loadFunc) (any, error) {
	return global().get(cfg, key, loadFunc)
}

// Evict drops key so the next Load builds it again, as after the file on
// disk has changed.
func Evict(key string) {
	global().evict(key)
}

type readFunc func(data []byte) (any, error)

// Populate stores the object built from data under key, replacing any
// previous one.
func Populate(key string, data []byte, readFunc readFunc) error {
	obj, err := readFunc(data)
	if err != nil {
		return err
	}
	c := global()
	c.Lock()
	defer c.Unlock()
	c.objects[key] = obj
	log.Debug().Str("key", key).Msg("populated-cache")
	return nil
}
