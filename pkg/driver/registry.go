package driver

import (
	"fmt"
	"sort"
	"sync"
)

// Options configures drivers created through the registry.
type Options struct {
	// Filename substitutes a recorded video for live hardware (OpenCV only).
	Filename string
}

// Factory creates a driver.
type Factory func(opts Options) Driver

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func init() {
	Register("opencv", func(o Options) Driver { return &OpenCV{Filename: o.Filename} })
	Register("ps3eye", func(Options) Driver { return NewPS3Eye() })
	Register("cleye", func(Options) Driver { return &CLEye{} })
	Register("mock", func(Options) Driver { return NewMock(1) })
}

// Register makes a driver available by name, replacing any previous one.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Lookup creates the driver registered under name.
func Lookup(name string, opts Options) (Driver, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown camera driver %q (available: %v)", name, Names())
	}
	return factory(opts), nil
}

// Names returns the registered driver names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
