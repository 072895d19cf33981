// Package profiling exposes an opt-in pprof server for debugging.
package profiling

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
)

// StartPprofServer starts a pprof server on a separate port when
// ENABLE_PROFILING=true. It binds to localhost only, so profiles are never
// reachable from outside the host.
func StartPprofServer() {
	if os.Getenv("ENABLE_PROFILING") != "true" {
		return
	}

	pprofPort := os.Getenv("PPROF_PORT")
	if pprofPort == "" {
		pprofPort = "6060"
	}

	addr := "localhost:" + pprofPort

	go func() {
		log.Printf("Starting pprof server on %s", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Printf("pprof server error: %v", err)
		}
	}()
}
