// Package guard switches binaries into test mode when imported by tests, so
// their main functions return before touching Postgres, Redis or the network.
package guard

import (
	"os"
	"sync"
)

// EnvVar is the variable app.InTestMode reads.
const EnvVar = "CONECTA2_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
