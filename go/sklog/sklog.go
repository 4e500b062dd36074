// Package sklog defines the leveled logging functions (e.g. Info, Errorf, etc.)
// used throughout this repo. All output goes to stderr.
package sklog

import (
	"os"

	logger "github.com/jcgregorio/logger"
)

// DepthDelta accounts for the wrapper functions below so that the reported
// call site is the caller of sklog, not sklog itself.
const depthDelta = 2

var log = logger.NewFromOptions(&logger.Options{
	SyncWriter:   os.Stderr,
	DepthDelta:   depthDelta,
	IncludeDebug: true,
})

// Functions to log at various levels. Debug, Info, Warning, Error, and Fatal
// use fmt.Sprint to format the arguments, functions ending in f use
// fmt.Sprintf. Fatal and Fatalf exit the program after logging.

func Debug(msg ...interface{}) {
	log.Debug(msg...)
}

func Debugf(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

func Info(msg ...interface{}) {
	log.Info(msg...)
}

func Infof(format string, v ...interface{}) {
	log.Infof(format, v...)
}

func Warning(msg ...interface{}) {
	log.Warning(msg...)
}

func Warningf(format string, v ...interface{}) {
	log.Warningf(format, v...)
}

func Error(msg ...interface{}) {
	log.Error(msg...)
}

func Errorf(format string, v ...interface{}) {
	log.Errorf(format, v...)
}

func Fatal(msg ...interface{}) {
	log.Fatal(msg...)
}

func Fatalf(format string, v ...interface{}) {
	log.Fatalf(format, v...)
}

// Flush is a no-op for the stderr-backed logger, kept so call sites don't need
// to care which backend is in use.
func Flush() {}
