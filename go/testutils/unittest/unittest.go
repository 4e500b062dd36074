// Package unittest categorizes tests by size so CI can select which to run.
package unittest

import (
	"flag"
	"testing"
)

const (
	SMALL_TEST = "small"
	LARGE_TEST = "large"
)

var (
	small = flag.Bool(SMALL_TEST, false, "Whether or not to run small tests.")
	large = flag.Bool(LARGE_TEST, false, "Whether or not to run large tests.")
)

// ShouldRun determines whether the given test type should run based on the
// provided flags. With no filter flag set, everything runs.
func ShouldRun(testType string) bool {
	if !*small && !*large {
		return true
	}
	switch testType {
	case SMALL_TEST:
		return *small
	case LARGE_TEST:
		return *large
	}
	return false
}

// SmallTest marks a test with no dependencies on external databases, networks,
// or the filesystem beyond a temp dir.
func SmallTest(t testing.TB) {
	if !ShouldRun(SMALL_TEST) {
		t.Skip("Not running small tests.")
	}
}

// LargeTest marks a test which touches external services or is slow.
func LargeTest(t testing.TB) {
	if !ShouldRun(LARGE_TEST) {
		t.Skip("Not running large tests.")
	}
}
