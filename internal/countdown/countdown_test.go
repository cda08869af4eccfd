package countdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name   string
		now    int64
		target int64
		want   Remaining
	}{
		{"1日1時間1分1秒", 0, 90_061_000, Remaining{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}},
		{"端数のミリ秒は切り捨て", 0, 1_999, Remaining{Seconds: 1}},
		{"ちょうど1日", 1_000, 1_000 + 86_400_000, Remaining{Days: 1}},
		{"target == now は0", 5_000, 5_000, Remaining{}},
		{"target < now は0", 10_000, 0, Remaining{}},
		{"負の時刻でも負値にならない", -100_000, -200_000, Remaining{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.now, tt.target)
			if got != tt.want {
				t.Errorf("Calculate(%d, %d) = %+v, want %+v", tt.now, tt.target, got, tt.want)
			}
		})
	}
}

func TestCalculate_NeverNegative(t *testing.T) {
	values := []int64{-90_061_000, -1, 0, 1, 59_999, 3_600_000, 90_061_000, 1 << 40}
	for _, now := range values {
		for _, target := range values {
			r := Calculate(now, target)
			if r.Days < 0 || r.Hours < 0 || r.Minutes < 0 || r.Seconds < 0 {
				t.Errorf("Calculate(%d, %d) に負の値: %+v", now, target, r)
			}
			if target <= now && !r.IsZero() {
				t.Errorf("Calculate(%d, %d) = %+v, want zero", now, target, r)
			}
		}
	}
}

func TestRemaining_String(t *testing.T) {
	r := Remaining{Days: 3, Hours: 4, Minutes: 5, Seconds: 6}
	if got := r.String(); got != "3d 04h 05m 06s" {
		t.Errorf("String() = %q", got)
	}
}

// fakeClock はRunに渡す時刻関数をテストから進めるための時計。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRun_CallsImmediately(t *testing.T) {
	start := time.Unix(0, 0)
	clock := &fakeClock{now: start}
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(chan Remaining, 10)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, clock.Now, start.Add(90_061*time.Second), time.Hour, func(r Remaining) {
			calls <- r
		})
	}()

	select {
	case r := <-calls:
		if want := (Remaining{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}); r != want {
			t.Errorf("初回の残り時間 = %+v, want %+v", r, want)
		}
	case <-time.After(time.Second):
		t.Fatal("初回の計算が即座に呼ばれなかった")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("キャンセル後にRunが戻らなかった")
	}
}

func TestRun_StopsWhenTargetReached(t *testing.T) {
	start := time.Unix(1_000, 0)
	clock := &fakeClock{now: start}
	target := start.Add(2 * time.Second)

	var mu sync.Mutex
	var got []Remaining
	err := Run(context.Background(), func() time.Time {
		now := clock.Now()
		clock.Advance(time.Second)
		return now
	}, target, 5*time.Millisecond, func(r Remaining) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("呼び出し回数 = %d, want 3 (%+v)", len(got), got)
	}
	if got[0].Seconds != 2 || got[1].Seconds != 1 || !got[2].IsZero() {
		t.Errorf("残り時間の推移が不正: %+v", got)
	}
}

func TestRun_PastTargetReturnsAfterOneCall(t *testing.T) {
	now := time.Now()
	calls := 0
	err := Run(context.Background(), func() time.Time { return now }, now.Add(-time.Minute), time.Millisecond, func(r Remaining) {
		calls++
		if !r.IsZero() {
			t.Errorf("過去の期限で0以外: %+v", r)
		}
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("呼び出し回数 = %d, want 1", calls)
	}
}

func TestRun_SubSecondRemainderKeepsRunningUntilTarget(t *testing.T) {
	start := time.Unix(2_000, 0)
	clock := &fakeClock{now: start}
	target := start.Add(500 * time.Millisecond)

	var seen []time.Time
	err := Run(context.Background(), func() time.Time {
		now := clock.Now()
		seen = append(seen, now)
		clock.Advance(300 * time.Millisecond)
		return now
	}, target, time.Millisecond, func(r Remaining) {
		if !r.IsZero() {
			t.Errorf("1秒未満の残りで0以外: %+v", r)
		}
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("時刻の取得回数 = %d, want 3", len(seen))
	}
	if last := seen[len(seen)-1]; last.Before(target) {
		t.Errorf("Runが期限前に戻った: last = %v, target = %v", last, target)
	}
}
