package classifier

import (
	"path/filepath"
	"sync"
)

// baseLocks serializes operations that share a model base path within the process.
var baseLocks sync.Map // map[string]*sync.Mutex

func lockFor(basePath string) *sync.Mutex {
	key := filepath.Clean(basePath)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	mu, _ := baseLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
