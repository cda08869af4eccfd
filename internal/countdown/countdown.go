// Package countdown は終了日時までの残り時間を日・時・分・秒に分解する。
package countdown

import (
	"context"
	"fmt"
	"time"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// DefaultInterval は残り時間を再計算する間隔。
const DefaultInterval = 1000 * time.Millisecond

// Remaining は残り時間の内訳。各値は負にならない。
type Remaining struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// IsZero は残り時間がすべて0かどうかを返す。
func (r Remaining) IsZero() bool {
	return r == Remaining{}
}

// String は "1d 01h 01m 01s" 形式の文字列を返す。
func (r Remaining) String() string {
	return fmt.Sprintf("%dd %02dh %02dm %02ds", r.Days, r.Hours, r.Minutes, r.Seconds)
}

// Calculate はnowMillisからtargetMillisまでの残り時間を返す。
// target <= now の場合はすべて0を返す。
func Calculate(nowMillis, targetMillis int64) Remaining {
	if targetMillis <= nowMillis {
		return Remaining{}
	}
	distance := targetMillis - nowMillis
	return Remaining{
		Days:    distance / msPerDay,
		Hours:   (distance % msPerDay) / msPerHour,
		Minutes: (distance % msPerHour) / msPerMinute,
		Seconds: (distance % msPerMinute) / msPerSecond,
	}
}

// Until はnowからtargetまでの残り時間を返す。
func Until(now, target time.Time) Remaining {
	return Calculate(now.UnixMilli(), target.UnixMilli())
}

// Run は残り時間を即座に1回計算してfnに渡し、その後intervalごとに再計算する。
// ctxがキャンセルされるか、nowがtargetに到達した時点で戻る。
// 1秒未満の端数が残っている間は0秒の内訳を渡し続ける。
// 戻る前にtickerは必ず停止される。戻り値はctxのエラー（期限到達時はnil）。
func Run(ctx context.Context, now func() time.Time, target time.Time, interval time.Duration, fn func(Remaining)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	t := now()
	fn(Until(t, target))
	if !t.Before(target) {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t := now()
			fn(Until(t, target))
			if !t.Before(target) {
				return nil
			}
		}
	}
}
