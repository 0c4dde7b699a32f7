package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("BAGO_TEST_MODE") == "" {
			_ = os.Setenv("BAGO_TEST_MODE", "1")
		}
	})
}
