// Package ranking はコントリビューションを集計し、マージ済みPR数によるランキングを生成する。
package ranking

import (
	"sort"

	"github.com/hitoshi/prboard/internal/model"
)

// Badge はランキング上位3名に付与される表示用のメダル。
type Badge string

const (
	BadgeGold   Badge = "gold"
	BadgeSilver Badge = "silver"
	BadgeBronze Badge = "bronze"
	BadgeNone   Badge = ""
)

// Entry はランキングの1行を表す。
// Profileが存在しないユーザーの表示用フィールドはnilのまま返す。
type Entry struct {
	Position        int // 0始まりの表示位置
	UserID          string
	PRCount         int
	DisplayName     *string
	GitHubUsername  *string
	GitHubAvatarURL *string
}

// Rank は表示用の順位（1始まり）を返す。
func (e Entry) Rank() int {
	return e.Position + 1
}

// Badge は表示位置に応じたメダルを返す。
func (e Entry) Badge() Badge {
	return BadgeFor(e.Position)
}

// BadgeFor は表示位置 0..2 にそれぞれ gold, silver, bronze を返し、それ以外は BadgeNone を返す。
func BadgeFor(position int) Badge {
	switch position {
	case 0:
		return BadgeGold
	case 1:
		return BadgeSilver
	case 2:
		return BadgeBronze
	default:
		return BadgeNone
	}
}

// Rank はコントリビューションをユーザーごとに集計し、PR数の降順に並べたランキングを返す。
//
// scopeがmodel.AllTimeScope以外の場合、leaderboard_idがscopeと一致するものだけを集計する。
// 集計後に0件となるユーザーは結果に含めない。
// PR数が同じ場合はuser_idの昇順で並べるため、同じ入力に対して常に同じ結果を返す。
func Rank(contributions []*model.Contribution, profiles map[string]*model.Profile, scope string) []Entry {
	counts := make(map[string]int)
	for _, c := range contributions {
		if c == nil || !inScope(c, scope) {
			continue
		}
		counts[c.UserID]++
	}

	entries := make([]Entry, 0, len(counts))
	for userID, n := range counts {
		e := Entry{UserID: userID, PRCount: n}
		if p, ok := profiles[userID]; ok && p != nil {
			e.DisplayName = p.DisplayName
			e.GitHubUsername = p.GitHubUsername
			e.GitHubAvatarURL = p.GitHubAvatarURL
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PRCount != entries[j].PRCount {
			return entries[i].PRCount > entries[j].PRCount
		}
		return entries[i].UserID < entries[j].UserID
	})

	for i := range entries {
		entries[i].Position = i
	}
	return entries
}

// UserIDs はコントリビューションに含まれるuser_idを重複なく返す。
// プロフィールの一括取得に使用する。
func UserIDs(contributions []*model.Contribution) []string {
	seen := make(map[string]struct{}, len(contributions))
	ids := make([]string, 0, len(contributions))
	for _, c := range contributions {
		if c == nil {
			continue
		}
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		ids = append(ids, c.UserID)
	}
	return ids
}

func inScope(c *model.Contribution, scope string) bool {
	if scope == model.AllTimeScope {
		return true
	}
	return c.LeaderboardID != nil && *c.LeaderboardID == scope
}
