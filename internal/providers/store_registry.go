package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// StoreConfig carries what the built-in object store backends need.
type StoreConfig struct {
	AWS      aws.Config
	LocalDir string
}

// StoreFactory creates an ObjectStore from configuration
type StoreFactory func(cfg StoreConfig) (ObjectStore, error)

var (
	storeRegistry = make(map[string]StoreFactory)
	storeMu       sync.RWMutex
)

func init() {
	RegisterStore("s3", func(cfg StoreConfig) (ObjectStore, error) {
		return NewS3ObjectStore(NewS3Client(cfg.AWS)), nil
	})
	RegisterStore("local", func(cfg StoreConfig) (ObjectStore, error) {
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("local object store: root directory is required")
		}
		return NewLocalObjectStore(cfg.LocalDir), nil
	})
}

// RegisterStore registers an object store factory under backend.
func RegisterStore(backend string, factory StoreFactory) {
	storeMu.Lock()
	defer storeMu.Unlock()
	storeRegistry[backend] = factory
}

// NewObjectStore creates the object store registered under backend.
func NewObjectStore(backend string, cfg StoreConfig) (ObjectStore, error) {
	storeMu.RLock()
	factory, ok := storeRegistry[backend]
	storeMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
	return factory(cfg)
}

// ListStores returns the registered backends in sorted order.
func ListStores() []string {
	storeMu.RLock()
	defer storeMu.RUnlock()

	out := make([]string, 0, len(storeRegistry))
	for name := range storeRegistry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
