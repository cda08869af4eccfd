package fetch

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/hitoshi/prboard/internal/githubapi"
	"github.com/hitoshi/prboard/internal/model"
)

// SyncResult は同期エラーの分類。
type SyncResult int

const (
	// SyncResultOK は同期成功。
	SyncResultOK SyncResult = iota
	// SyncResultStop はリポジトリが参照できず、最大間隔まで同期を止めるべき状態（404/410/451/401/403）。
	SyncResultStop
	// SyncResultBackoff は一時的な障害で、指数バックオフが必要な状態（5xx、通信エラー）。
	SyncResultBackoff
	// SyncResultRateLimited はGitHub APIのレート制限。リセット時刻まで全プロジェクトの同期を止める。
	SyncResultRateLimited
	// SyncResultRetry はストア障害など、次サイクルでそのまま再試行する状態。
	SyncResultRetry
)

const (
	// initialBackoff は指数バックオフの初回遅延（30分）。
	initialBackoff = 30 * time.Minute
	// maxBackoff は指数バックオフの最大遅延（12時間）。
	maxBackoff = 12 * time.Hour
)

// ClassifyHTTPStatus はGitHub APIのHTTPステータスコードを同期結果に分類する。
func ClassifyHTTPStatus(statusCode int) SyncResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return SyncResultOK
	case statusCode == http.StatusNotFound ||
		statusCode == http.StatusGone ||
		statusCode == http.StatusUnavailableForLegalReasons:
		return SyncResultStop
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return SyncResultStop
	case statusCode == http.StatusTooManyRequests:
		return SyncResultRateLimited
	default:
		return SyncResultBackoff
	}
}

// ClassifyError は同期処理が返したエラーを分類する。
func ClassifyError(err error) SyncResult {
	if err == nil {
		return SyncResultOK
	}
	var rateErr *githubapi.RateLimitedError
	if errors.As(err, &rateErr) {
		return SyncResultRateLimited
	}
	if errors.Is(err, githubapi.ErrNotFound) {
		return SyncResultStop
	}
	var storeErr *model.StoreError
	if errors.As(err, &storeErr) {
		return SyncResultRetry
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return ClassifyHTTPStatus(respErr.Response.StatusCode)
	}
	return SyncResultBackoff
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回30分、2倍ずつ増加、最大12時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

type backoffEntry struct {
	consecutiveErrors int
	nextAttemptAt     time.Time
}

// BackoffTracker はプロジェクトごとの同期再試行時刻をメモリ上で管理する。
// レート制限時は全プロジェクトをリセット時刻まで停止する。
type BackoffTracker struct {
	mu          sync.Mutex
	entries     map[string]*backoffEntry
	pausedUntil time.Time
	now         func() time.Time
}

// NewBackoffTracker はBackoffTrackerの新しいインスタンスを生成する。
func NewBackoffTracker() *BackoffTracker {
	return &BackoffTracker{
		entries: make(map[string]*backoffEntry),
		now:     time.Now,
	}
}

// Ready は指定プロジェクトを今同期してよいかを返す。
func (b *BackoffTracker) Ready(projectID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Before(b.pausedUntil) {
		return false
	}
	entry, ok := b.entries[projectID]
	return !ok || !now.Before(entry.nextAttemptAt)
}

// Record は同期結果を記録し、次回の同期可能時刻を更新する。
func (b *BackoffTracker) Record(projectID string, err error) SyncResult {
	result := ClassifyError(err)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch result {
	case SyncResultOK:
		delete(b.entries, projectID)
	case SyncResultRateLimited:
		reset := now.Add(initialBackoff)
		var rateErr *githubapi.RateLimitedError
		if errors.As(err, &rateErr) && rateErr.Reset.After(now) {
			reset = rateErr.Reset
		}
		if reset.After(b.pausedUntil) {
			b.pausedUntil = reset
		}
	case SyncResultStop:
		entry := b.entry(projectID)
		entry.consecutiveErrors++
		entry.nextAttemptAt = now.Add(maxBackoff)
	case SyncResultBackoff:
		entry := b.entry(projectID)
		entry.consecutiveErrors++
		entry.nextAttemptAt = now.Add(CalculateBackoff(entry.consecutiveErrors - 1))
	}
	return result
}

// PausedUntil はレート制限による全体停止の終了時刻を返す。
func (b *BackoffTracker) PausedUntil() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pausedUntil
}

func (b *BackoffTracker) entry(projectID string) *backoffEntry {
	entry, ok := b.entries[projectID]
	if !ok {
		entry = &backoffEntry{}
		b.entries[projectID] = entry
	}
	return entry
}
