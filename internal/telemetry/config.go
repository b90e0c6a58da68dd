package telemetry

import (
	"os"
	"sync/atomic"
)

var (
	observeEnabled bool
	verboseFlag    atomic.Bool
)

func init() {
	// Read once at process start. Mid-run environment changes have no effect.
	observeEnabled = os.Getenv("DBCHAT_OBSERVE_JSON") == "1"
	verboseFlag.Store(os.Getenv("DBCHAT_VERBOSE") == "1")
}

// ObserveEnabled reports whether JSONL emission was enabled at startup.
func ObserveEnabled() bool {
	// Preserve startup-evaluated default, but allow tests to enable mid-run via env override.
	if os.Getenv("DBCHAT_OBSERVE_JSON") == "1" {
		return true
	}
	return observeEnabled
}

// VerboseEnabled reports whether verbose stderr logging is on.
func VerboseEnabled() bool {
	if os.Getenv("DBCHAT_VERBOSE") == "1" {
		return true
	}
	return verboseFlag.Load()
}

// SetVerbose overrides the verbose setting; used by the -verbose CLI flag.
func SetVerbose(on bool) { verboseFlag.Store(on) }
