package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "HELMDESK_TEST_MODE"

// testMode caches HELMDESK_TEST_MODE; nil until first read.
var testMode atomic.Pointer[bool]

// InTestMode reports whether the binaries should skip runtime side effects.
// The flag is set by importing the testing helper package.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the environment and returns the new value.
func RefreshTestMode() bool {
	on := os.Getenv(testModeEnv) == "1"
	testMode.Store(&on)
	return on
}
