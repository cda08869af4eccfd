package stats

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/prboard/internal/model"
)

// mockCounter はテスト用のCounter。
type mockCounter struct {
	count int
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (m *mockCounter) Count(ctx context.Context) (int, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return m.count, m.err
}

func TestSummary_CombinesAllCounts(t *testing.T) {
	svc := NewService(&mockCounter{count: 3}, &mockCounter{count: 7}, &mockCounter{count: 42})

	got, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if got.Projects != 3 || got.Contributors != 7 || got.PRs != 42 {
		t.Errorf("Summary() = %+v, want {3 7 42}", got)
	}
}

func TestSummary_RunsConcurrently(t *testing.T) {
	delay := 100 * time.Millisecond
	svc := NewService(
		&mockCounter{count: 1, delay: delay},
		&mockCounter{count: 2, delay: delay},
		&mockCounter{count: 3, delay: delay},
	)

	start := time.Now()
	if _, err := svc.Summary(context.Background()); err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 3*delay {
		t.Errorf("3つの取得が並行に実行されていない: elapsed=%v", elapsed)
	}
}

func TestSummary_FailsWhenAnyCountFails(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(&mockCounter{count: 1}, &mockCounter{err: boom}, &mockCounter{count: 3, delay: 50 * time.Millisecond})

	got, err := svc.Summary(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Summary() error = %v, want %v", err, boom)
	}
	var storeErr *model.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Summary() error = %T, want *model.StoreError", err)
	}
	if want := "コントリビューター数の取得に失敗しました: connection refused"; storeErr.Error() != want {
		t.Errorf("StoreError = %q, want %q", storeErr.Error(), want)
	}
	if got != nil {
		t.Errorf("失敗時の結果はnilであるべき: %+v", got)
	}
}
