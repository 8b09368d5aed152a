package try_test

import (
	"errors"
	"testing"

	"github.com/poselab/dispatchd/pkg/utils/try"
)

type fataler struct {
	called bool
	args   []any
}

func (f *fataler) Fatal(args ...any) {
	f.called = true
	f.args = args
}

func TestTo(t *testing.T) {
	t.Run("ok value", func(t *testing.T) {
		either := try.To(42, nil)

		val, err := either.Get()
		if err != nil || val != 42 {
			t.Errorf("Get() = (%v, %v)", val, err)
		}
		if actual := either.OrDefault(0); actual != 42 {
			t.Errorf("OrDefault() = %v", actual)
		}

		f := &fataler{}
		if actual := either.OrFatal(f); actual != 42 {
			t.Errorf("OrFatal() = %v", actual)
		}
		if f.called {
			t.Error("Fatal should not be called for ok value")
		}
	})

	t.Run("error value", func(t *testing.T) {
		expectedErr := errors.New("fake error")
		either := try.To(0, expectedErr)

		if _, err := either.Get(); !errors.Is(err, expectedErr) {
			t.Errorf("Get() error = %v", err)
		}
		if actual := either.OrDefault(99); actual != 99 {
			t.Errorf("OrDefault() = %v", actual)
		}

		f := &fataler{}
		either.OrFatal(f)
		if !f.called {
			t.Error("Fatal should be called for error value")
		}
	})
}
