// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Attemptf logs a message tagged with an attempt id. Only identifiers and
// derived values belong here, never raw pointer coordinates.
func Attemptf(attemptID, format string, v ...interface{}) {
	Logf("[attempt %s] %s", attemptID, fmt.Sprintf(format, v...))
}
