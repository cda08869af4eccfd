package model

import "time"

// AllTimeScope は全期間ランキングを表す疑似リーダーボードID。
const AllTimeScope = "all"

// Leaderboard は期間を区切ったランキング競技を表す。
// IsActive は表示可否を制御するだけで、集計対象かどうかには影響しない。
type Leaderboard struct {
	ID          string
	Name        string
	Description *string
	StartDate   time.Time
	EndDate     time.Time
	IsActive    bool
	CreatedBy   *string
	CreatedAt   time.Time
}

// Contains は指定時刻がリーダーボードの期間 [StartDate, EndDate] に含まれるかを返す。
func (l *Leaderboard) Contains(t time.Time) bool {
	return !t.Before(l.StartDate) && !t.After(l.EndDate)
}
