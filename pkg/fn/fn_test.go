package fn

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	first := func(_ context.Context, n int) Result[int] { return Err[int](boom) }
	var secondRan bool
	second := func(_ context.Context, n int) Result[string] {
		secondRan = true
		return Ok(strconv.Itoa(n))
	}

	r := Then(first, second)(context.Background(), 1)
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if secondRan {
		t.Error("second stage must not run after a failure")
	}
}

func TestThenPassesValue(t *testing.T) {
	first := func(_ context.Context, n int) Result[int] { return Ok(n * 2) }
	second := func(_ context.Context, n int) Result[string] { return Ok(strconv.Itoa(n)) }

	if got := Then(first, second)(context.Background(), 21).Must(); got != "42" {
		t.Errorf("got %q", got)
	}
}

func TestCollect(t *testing.T) {
	ok := Collect([]Result[int]{Ok(1), Ok(2)})
	if vs := ok.Must(); len(vs) != 2 || vs[1] != 2 {
		t.Errorf("values = %v", vs)
	}

	bad := Collect([]Result[int]{Ok(1), Err[int](errors.New("x"))})
	if bad.IsOk() {
		t.Error("expected error")
	}
}

func TestParMapResultKeepsOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	results := ParMapResult(items, 2, func(n int) Result[int] {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return Ok(n * 10)
	})
	for i, r := range results {
		if r.Must() != items[i]*10 {
			t.Fatalf("order broken at %d: %v", i, r)
		}
	}
}

func TestFanOutResult(t *testing.T) {
	r := FanOutResult(
		func() Result[int] { return Ok(1) },
		func() Result[int] { return Ok(2) },
	)
	if vs := r.Must(); vs[0] != 1 || vs[1] != 2 {
		t.Errorf("values = %v", vs)
	}

	bad := FanOutResult(
		func() Result[int] { return Ok(1) },
		func() Result[int] { return Err[int](errors.New("down")) },
	)
	if bad.IsOk() {
		t.Error("expected error")
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	var attempts atomic.Int32
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}

	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		if attempts.Add(1) < 3 {
			return Err[int](errors.New("flaky"))
		}
		return Ok(7)
	})
	if r.Must() != 7 || attempts.Load() != 3 {
		t.Errorf("result = %v after %d attempts", r, attempts.Load())
	}
}

func TestRetryExhausts(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		return Err[int](errors.New("always"))
	})
	if r.IsOk() {
		t.Error("expected failure after exhausting attempts")
	}
}

func TestSliceHelpers(t *testing.T) {
	if got := Map([]int{1, 2}, func(n int) int { return n + 1 }); got[0] != 2 || got[1] != 3 {
		t.Errorf("Map = %v", got)
	}
	if got := Filter([]int{1, 2, 3}, func(n int) bool { return n%2 == 1 }); len(got) != 2 {
		t.Errorf("Filter = %v", got)
	}
	got := FilterMap([]int{1, 2, 3}, func(n int) (string, bool) {
		return strconv.Itoa(n), n > 1
	})
	if len(got) != 2 || got[0] != "2" {
		t.Errorf("FilterMap = %v", got)
	}
	if chunks := Chunk([]int{1, 2, 3, 4, 5}, 2); len(chunks) != 3 || len(chunks[2]) != 1 {
		t.Errorf("Chunk = %v", chunks)
	}
	if Chunk([]int{1}, 0) != nil {
		t.Error("Chunk with n<=0 should be nil")
	}
}
