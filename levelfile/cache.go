package levelfile

import (
	"bytes"
	"errors"
	"strings"

	"github.com/flickyourselfon/railhint/cache"
	"github.com/flickyourselfon/railhint/config"
)

var CacheKeyPrefix = "levels:"

// CacheLoadFunc loads and builds a level file into the global cache.
func CacheLoadFunc(cfg *config.Config, key string) (any, error) {
	f, err := Load(strings.TrimPrefix(key, CacheKeyPrefix))
	if err != nil {
		return nil, err
	}
	return BuildAll(f, BuildOptions{})
}

func CacheReadFunc(data []byte) (any, error) {
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return BuildAll(f, BuildOptions{})
}

// Set builds levels from bytes and stores them under name.
func Set(name string, data []byte) error {
	return cache.Populate(CacheKeyPrefix+name, data, CacheReadFunc)
}

// Get returns the built levels of the file at path, building them on first
// use. Built levels are shared, so callers must not modify them; searches
// only read them.
func Get(cfg *config.Config, path string) ([]*Built, error) {
	obj, err := cache.Load(cfg, CacheKeyPrefix+path, CacheLoadFunc)
	if err != nil {
		return nil, err
	}
	built, ok := obj.([]*Built)
	if !ok {
		return nil, errors.New("could not read levels from cache")
	}
	return built, nil
}
