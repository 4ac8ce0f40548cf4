package simd

import (
	"os"
	"strconv"
)

// noSimdEnv checks HWY_NO_SIMD, the same escape hatch go-highway's
// dispatch.go exposes as NoSimdEnv, so a build can be pinned to the
// narrower SSE/NEON-class block width for testing.
func noSimdEnv() bool {
	val := os.Getenv("HWY_NO_SIMD")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}
