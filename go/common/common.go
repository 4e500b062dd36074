// Package common handles tool initialization.
// Import only from package main.
package common

import (
	"flag"

	"go.yoptima.org/infra/go/sklog"
)

// Init parses flags and echoes their values, so every process logs the exact
// configuration it started with.
func Init(appName string) {
	flag.Parse()
	sklog.Infof("Starting %s", appName)
	flag.VisitAll(func(f *flag.Flag) {
		sklog.Infof("Flags: --%s=%v", f.Name, f.Value)
	})
}
