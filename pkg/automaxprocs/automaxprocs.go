// Package automaxprocs GOMAXPROCS setup honouring container CPU quotas
package automaxprocs

import (
	"runtime"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/forest33/edsp/pkg/logger"
)

// Init applies procs when positive, otherwise derives GOMAXPROCS from the CPU
// quota. The returned func restores the previous value.
func Init(log *logger.Logger, procs int) func() {
	if procs > 0 {
		prev := runtime.GOMAXPROCS(procs)
		log.Info().Int("procs", procs).Msg("GOMAXPROCS set from configuration")
		return func() { runtime.GOMAXPROCS(prev) }
	}

	undo, err := maxprocs.Set(maxprocs.Logger(log.Printf))
	if err != nil {
		log.Error().Err(err).Msg("failed to set automaxprocs")
		return func() {}
	}
	return undo
}
