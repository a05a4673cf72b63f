package observability

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	observers = map[string]Observer{
		"noop": Discard,
		"slog": NewSlogObserver(slog.Default()),
	}
	mutex sync.RWMutex
)

// GetObserver resolves an observer name. A comma-separated list such as
// "slog,zap" resolves each name and tees them together. Pre-registered
// observers are "noop" and "slog"; the command registers "zap" once it
// has built a zap logger.
func GetObserver(name string) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	names := strings.Split(name, ",")
	resolved := make([]Observer, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		obs, exists := observers[n]
		if !exists {
			return nil, fmt.Errorf("unknown observer: %s", n)
		}
		resolved = append(resolved, obs)
	}
	return Tee(resolved...), nil
}

// RegisterObserver adds or replaces a named observer in the global registry.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}
