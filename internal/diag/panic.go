package diag

import (
	"fmt"
	"os"
)

// Panicf is the free-standing fatal path used by the low-level pools
// (AllocPool, ReservedVec, IndexMap) that are constructed before a
// Sink necessarily exists. It mirrors the original source's global
// minos-backed panic(): format, flush, terminate. Never returns.
func Panicf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "fatal: %s\n", fmt.Sprintf(format, args...))
	os.Stderr.Sync()
	os.Exit(2)
}
