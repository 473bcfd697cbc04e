package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PERMD_TEST_MODE") == "" {
			_ = os.Setenv("PERMD_TEST_MODE", "1")
		}
	})
}
