package ranking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hitoshi/prboard/internal/model"
)

func strPtr(s string) *string { return &s }

func contribution(userID string, leaderboardID *string) *model.Contribution {
	return &model.Contribution{UserID: userID, ProjectID: "p1", LeaderboardID: leaderboardID}
}

func TestRank_CountsAndOrder(t *testing.T) {
	lb := strPtr("lb-1")
	contributions := []*model.Contribution{
		contribution("u2", lb),
		contribution("u1", lb),
		contribution("u2", lb),
		contribution("u3", nil),
		contribution("u2", nil),
	}
	profiles := map[string]*model.Profile{
		"u2": {UserID: "u2", DisplayName: strPtr("Bob"), GitHubUsername: strPtr("bob")},
	}

	got := Rank(contributions, profiles, model.AllTimeScope)
	want := []Entry{
		{Position: 0, UserID: "u2", PRCount: 3, DisplayName: strPtr("Bob"), GitHubUsername: strPtr("bob")},
		{Position: 1, UserID: "u1", PRCount: 1},
		{Position: 2, UserID: "u3", PRCount: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rank() mismatch (-want +got):\n%s", diff)
	}
}

func TestRank_ScopeFiltersByLeaderboard(t *testing.T) {
	lb1, lb2 := strPtr("lb-1"), strPtr("lb-2")
	contributions := []*model.Contribution{
		contribution("u1", lb1),
		contribution("u2", lb2),
		contribution("u2", lb2),
		contribution("u3", nil),
	}

	got := Rank(contributions, nil, "lb-2")
	if len(got) != 1 {
		t.Fatalf("Rank(lb-2) len = %d, want 1", len(got))
	}
	if got[0].UserID != "u2" || got[0].PRCount != 2 {
		t.Errorf("Rank(lb-2)[0] = %+v, want u2 with 2 PRs", got[0])
	}

	all := Rank(contributions, nil, model.AllTimeScope)
	if len(all) != 3 {
		t.Errorf("Rank(all) len = %d, want 3", len(all))
	}

	none := Rank(contributions, nil, "lb-unknown")
	if len(none) != 0 {
		t.Errorf("該当のないスコープは空であるべき: got %d件", len(none))
	}
}

func TestRank_TieBreakIsAscendingUserID(t *testing.T) {
	contributions := []*model.Contribution{
		contribution("c", nil),
		contribution("a", nil),
		contribution("b", nil),
	}
	got := Rank(contributions, nil, model.AllTimeScope)
	order := []string{got[0].UserID, got[1].UserID, got[2].UserID}
	if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
		t.Errorf("同数の場合はuser_id昇順であるべき (-want +got):\n%s", diff)
	}
}

func TestRank_Deterministic(t *testing.T) {
	contributions := []*model.Contribution{
		contribution("u5", nil), contribution("u4", nil), contribution("u3", nil),
		contribution("u2", nil), contribution("u1", nil), contribution("u4", nil),
	}
	first := Rank(contributions, nil, model.AllTimeScope)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Rank(contributions, nil, model.AllTimeScope)); diff != "" {
			t.Fatalf("同じ入力で結果が変わった (-first +got):\n%s", diff)
		}
	}
}

func TestRank_EmptyInput(t *testing.T) {
	got := Rank(nil, map[string]*model.Profile{}, model.AllTimeScope)
	if got == nil || len(got) != 0 {
		t.Errorf("Rank([]) = %#v, want empty slice", got)
	}
}

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		position int
		want     Badge
		rank     int
	}{
		{0, BadgeGold, 1},
		{1, BadgeSilver, 2},
		{2, BadgeBronze, 3},
		{3, BadgeNone, 4},
		{10, BadgeNone, 11},
	}
	for _, tt := range tests {
		e := Entry{Position: tt.position}
		if got := e.Badge(); got != tt.want {
			t.Errorf("Badge(%d) = %q, want %q", tt.position, got, tt.want)
		}
		if got := e.Rank(); got != tt.rank {
			t.Errorf("Rank(%d) = %d, want %d", tt.position, got, tt.rank)
		}
	}
}

func TestUserIDs(t *testing.T) {
	got := UserIDs([]*model.Contribution{
		contribution("u2", nil), contribution("u1", nil), contribution("u2", nil),
	})
	if diff := cmp.Diff([]string{"u2", "u1"}, got); diff != "" {
		t.Errorf("UserIDs() mismatch (-want +got):\n%s", diff)
	}
}
