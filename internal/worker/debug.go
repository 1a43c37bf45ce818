package worker

import (
	"os"
	"strings"
)

var workerDebugEnabled = strings.EqualFold(os.Getenv("WELLNESS_WORKER_DEBUG"), "1")

// debugLog traces dispatch decisions. The flag is an explicit opt-in, so the
// lines go out at Info and survive the production log level.
func (d *Dispatcher) debugLog(msg string, keysAndValues ...interface{}) {
	if workerDebugEnabled {
		d.log.Info(msg, keysAndValues...)
	}
}
