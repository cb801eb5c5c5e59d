package stream

import (
	"errors"
	"strconv"
	"testing"
)

func TestTryMapStopsOnFirstFailure(t *testing.T) {
	calls := 0
	src := Just("1", "x", "3")
	out, err := Collect(TryMap(src, func(s string) (int, error) {
		calls++
		return strconv.Atoi(s)
	}))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if len(out) != 1 || out[0] != 1 {
		t.Fatalf("unexpected elements before failure: %v", out)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestFilterPassesUpstreamError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Collect(Filter(Fail[int](boom), func(int) bool { return true }))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestCatchReplacesTerminalError(t *testing.T) {
	src := func(yield func(int, error) bool) {
		if !yield(1, nil) {
			return
		}
		yield(0, errors.New("network down"))
	}
	out, err := Collect(Catch(src, func(err error) int { return -1 }))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(out) != 2 || out[1] != -1 {
		t.Fatalf("unexpected output %v", out)
	}
}

func TestDoSeesEveryElement(t *testing.T) {
	var seen []int
	out, err := Collect(Do(Just(1, 2, 3), func(v int) { seen = append(seen, v) }))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(seen) != 3 || len(out) != 3 {
		t.Fatalf("seen=%v out=%v", seen, out)
	}
}

func TestEarlyBreakStopsSource(t *testing.T) {
	pulled := 0
	src := func(yield func(int, error) bool) {
		for i := 0; i < 10; i++ {
			pulled++
			if !yield(i, nil) {
				return
			}
		}
	}
	for v := range Map(src, func(v int) int { return v * 2 }) {
		if v == 2 {
			break
		}
	}
	if pulled != 2 {
		t.Fatalf("expected source to stop after 2 pulls, got %d", pulled)
	}
}

func TestEmptyYieldsNothing(t *testing.T) {
	out, err := Collect(Empty[string]())
	if err != nil || len(out) != 0 {
		t.Fatalf("out=%v err=%v", out, err)
	}
}

func TestSharePullsSourceOnce(t *testing.T) {
	pulls := 0
	var src Stream[int] = func(yield func(int, error) bool) {
		for i := 1; i <= 3; i++ {
			pulls++
			if !yield(i, nil) {
				return
			}
		}
	}
	shared := Share(src)

	// partial first consumer
	for v, err := range shared {
		if err != nil || v != 1 {
			t.Fatalf("unexpected first element %d %v", v, err)
		}
		break
	}

	for range 2 {
		out, err := Collect(shared)
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if len(out) != 3 || out[0] != 1 || out[2] != 3 {
			t.Fatalf("unexpected elements %v", out)
		}
	}
	if pulls != 3 {
		t.Fatalf("expected 3 pulls, got %d", pulls)
	}
}

func TestShareReplaysTerminalError(t *testing.T) {
	boom := errors.New("boom")
	shared := Share(Fail[int](boom))
	for range 2 {
		if _, err := Collect(shared); !errors.Is(err, boom) {
			t.Fatalf("expected %v, got %v", boom, err)
		}
	}
}
