// Package ttesting contains small assertion helpers shared by the tests of
// this module. Each assertion runs as its own subtest.
package ttesting

import (
	"reflect"
	"testing"
)

func AssertEqualInt(t *testing.T, name string, got, want int) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualString(t *testing.T, name string, got, want string) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %q; want %q", got, want)
		}
	})
}

func AssertEqualBool(t *testing.T, name string, got, want bool) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %v; want %v", got, want)
		}
	})
}

func AssertInRangeInt(t *testing.T, name string, got, wantMin, wantMax int) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got < wantMin || got > wantMax {
			t.Errorf("got %d; want [%d,%d]", got, wantMin, wantMax)
		}
	})
}

// AssertDeepEqual compares with reflect.DeepEqual.
func AssertDeepEqual(t *testing.T, name string, got, want interface{}) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v; want %#v", got, want)
		}
	})
}
