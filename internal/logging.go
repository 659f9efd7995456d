package internal

import (
	"log"
	"os"
)

var debugEnabled bool

// InitLogging configures the process-wide logger. Debug lines are gated
// behind the verbose flag.
func InitLogging(verbose bool) {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	debugEnabled = verbose
}

// Debugf logs only when verbose logging was enabled at startup.
func Debugf(format string, args ...any) {
	if debugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}
