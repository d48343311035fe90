package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "BILLEASE_TEST_MODE"

var testMode struct {
	sync.Mutex
	loaded bool
	on     bool
}

// InTestMode reports whether BILLEASE_TEST_MODE holds a true value. Both
// binaries return before dialling postgres or redis when it does.
func InTestMode() bool {
	testMode.Lock()
	defer testMode.Unlock()
	if !testMode.loaded {
		testMode.on = readTestMode()
		testMode.loaded = true
	}
	return testMode.on
}

// RefreshTestMode re-reads the flag after the environment changed.
func RefreshTestMode() {
	testMode.Lock()
	defer testMode.Unlock()
	testMode.on = readTestMode()
	testMode.loaded = true
}

func readTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	return on
}
