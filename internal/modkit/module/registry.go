package module

import "sync"

// process wide port registry filled while the api mounts modules
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register stores ports under a module name, a later call replaces the entry
func Register(name string, ports any) {
	mu.Lock()
	defer mu.Unlock()
	reg[name] = ports
}

// PortsAs returns the ports stored for name asserted to T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := reg[name].(T)
	return v, ok
}

// Reset empties the registry, tests call it between mounts
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	reg = map[string]any{}
}
