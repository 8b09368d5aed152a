package loop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poselab/dispatchd/pkg/loop"
	"github.com/poselab/dispatchd/pkg/utils/try"
)

func TestStart(t *testing.T) {
	t.Run("it repeats task until Break", func(t *testing.T) {
		actual, err := loop.Start(
			context.Background(), 1,
			func(_ context.Context, v int) (int, loop.Next) {
				if 10 <= v {
					return v, loop.Break(nil)
				}
				return v + 1, loop.Continue(0)
			},
		)
		if err != nil {
			t.Fatal(err)
		}
		if actual != 10 {
			t.Errorf("actual=%d, expected=10", actual)
		}
	})

	t.Run("it returns the error of Break", func(t *testing.T) {
		expectedErr := errors.New("fake error")

		actual, err := loop.Start(
			context.Background(), 0,
			func(_ context.Context, v int) (int, loop.Next) {
				return v + 1, loop.Break(expectedErr)
			},
		)
		if !errors.Is(err, expectedErr) {
			t.Errorf("unexpected error: %v", err)
		}
		if actual != 1 {
			t.Errorf("actual=%d, expected=1", actual)
		}
	})

	t.Run("it breaks with ctx.Err() when context get be done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		_, err := loop.Start(
			ctx, 0,
			func(_ context.Context, v int) (int, loop.Next) {
				if 3 <= v {
					cancel()
				}
				return v + 1, loop.Continue(time.Millisecond)
			},
		)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it passes deadlined context when WithTimeout is passed", func(t *testing.T) {
		timeout := 100 * time.Millisecond

		try.To(loop.Start(
			context.Background(), 1,
			func(ctx context.Context, v int) (int, loop.Next) {
				now := time.Now()

				if deadline, ok := ctx.Deadline(); !ok {
					t.Errorf("deadline is not set")
				} else if !(deadline.Sub(now) <= timeout) {
					t.Errorf(
						"unexpected deadline\n===actual===\n%s\n===expected===\n(near) %s",
						deadline, now.Add(timeout),
					)
				}

				if 3 <= v {
					return v + 1, loop.Break(nil)
				}
				return v + 1, loop.Continue(10 * time.Millisecond)
			},
			loop.WithTimeout(timeout),
		)).OrFatal(t)
	})

	t.Run("it passes deadline-free context when WithTimeout is not passed", func(t *testing.T) {
		try.To(loop.Start(
			context.Background(), 1,
			func(ctx context.Context, v int) (int, loop.Next) {
				if deadline, ok := ctx.Deadline(); ok {
					t.Errorf("deadline is set: %s (now = %s)", deadline, time.Now())
				}

				if 3 <= v {
					return v + 1, loop.Break(nil)
				}
				return v + 1, loop.Continue(10 * time.Millisecond)
			},
		)).OrFatal(t)
	})

	t.Run("when context has been done before starting, it does nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		actual, err := loop.Start(
			ctx, 42,
			func(_ context.Context, v int) (int, loop.Next) {
				t.Error("task should not be called")
				return v, loop.Break(nil)
			},
		)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if actual != 42 {
			t.Errorf("initial value should be returned as is: %d", actual)
		}
	})
}
