package heartbeat

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Driver builds a Wrapper for a layer from its URI parameters.
// listener is true when the layer is part of a listening (receiver) URI.
type Driver func(params map[string]string, listener bool) (Wrapper, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a layer driver available by name. It panics if d is nil or name is taken.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("uri: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("uri: Register called twice for driver " + name)
	}
	drivers[name] = d
}

func GetDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("uri: unknown driver %q", name)
	}
	return d, nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	return slices.Sorted(maps.Keys(drivers))
}
