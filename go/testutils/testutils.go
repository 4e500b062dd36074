// Package testutils contains convenience utilities for testing.
package testutils

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// AssertDeepEqual fails the test if the two objects do not pass
// reflect.DeepEqual, printing both with spew so differences are visible.
func AssertDeepEqual(t *testing.T, expected, actual interface{}) {
	if !reflect.DeepEqual(expected, actual) {
		require.FailNow(t, fmt.Sprintf("Objects do not match: \na:\n%s\n\nb:\n%s\n", spew.Sprint(expected), spew.Sprint(actual)))
	}
}
