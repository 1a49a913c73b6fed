// Package xdebug exposes whether pool-internal debug logging is enabled,
// controlled by the DEBUG_POOL environment variable.
package xdebug

import (
	"os"
	"sync"
)

var (
	once    sync.Once
	enabled bool
)

// Enabled reports whether DEBUG_POOL=1 was set in the environment. The
// environment is read exactly once per process and cached.
func Enabled() bool {
	once.Do(func() {
		enabled = os.Getenv("DEBUG_POOL") == "1"
	})
	return enabled
}
