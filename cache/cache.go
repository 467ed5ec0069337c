package cache

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// The cache holds large objects that are expensive to load and safe to share
// between boards, solvers and matches: heuristic weight files and ONNX
// models, keyed by a string such as "weights:<path>".

type cache struct {
	sync.Mutex
	objects map[string]any
}

type loadFunc func(key string) (any, error)

// GlobalObjectCache is our global object cache, of course.
var GlobalObjectCache *cache

var createOnce sync.Once

func (c *cache) load(key string, loadFunc loadFunc) error {
	log.Debug().Str("key", key).Msg("loading into cache")

	obj, err := loadFunc(key)
	if err != nil {
		return err
	}
	c.objects[key] = obj

	return nil
}

func (c *cache) get(key string, loadFunc loadFunc) (any, error) {
	c.Lock()
	defer c.Unlock()
	obj, ok := c.objects[key]
	if !ok {
		err := c.load(key, loadFunc)
		if err != nil {
			return nil, err
		}
		return c.objects[key], nil
	}
	log.Debug().Str("key", key).Msg("getting obj from cache")

	return obj, nil
}

func (c *cache) forget(key string) {
	c.Lock()
	defer c.Unlock()
	delete(c.objects, key)
}

func CreateGlobalObjectCache() {
	createOnce.Do(func() {
		GlobalObjectCache = &cache{objects: make(map[string]any)}
	})
}

// Load returns the object stored under name, calling loadFunc to create it
// on first use. A failed load is not cached.
func Load(name string, loadFunc loadFunc) (any, error) {
	CreateGlobalObjectCache()
	return GlobalObjectCache.get(name, loadFunc)
}

// Forget drops name so that the next Load reads it again.
func Forget(name string) {
	CreateGlobalObjectCache()
	GlobalObjectCache.forget(name)
}
