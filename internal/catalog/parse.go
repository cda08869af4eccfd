package catalog

import (
	"regexp"
	"strings"

	"github.com/hitoshi/prboard/internal/model"
)

var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)

// RepoRef はGitHubリポジトリURLから抽出したowner/repoの組。
type RepoRef struct {
	Owner string
	Repo  string
	URL   string
}

// ParseRepoURL は "github.com/<owner>/<repo>" を含むURLからowner/repoを抽出する。
// repo末尾の ".git" は取り除く。一致しない場合はバリデーションエラーを返す。
func ParseRepoURL(rawURL string) (RepoRef, error) {
	trimmed := strings.TrimSpace(rawURL)
	m := repoURLPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return RepoRef{}, model.NewInvalidRepoURLError(rawURL)
	}

	repo := strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return RepoRef{}, model.NewInvalidRepoURLError(rawURL)
	}
	return RepoRef{Owner: m[1], Repo: repo, URL: trimmed}, nil
}

// ParseLabels はカンマ区切りのラベル文字列を分割する。
// 前後の空白を取り除き、空の要素は捨てる。順序は入力のまま。
func ParseLabels(raw string) []string {
	labels := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		l := strings.TrimSpace(part)
		if l == "" {
			continue
		}
		labels = append(labels, l)
	}
	return labels
}

// NormalizeLabels はラベルの前後の空白を取り除き、空の要素と重複を捨てる。
func NormalizeLabels(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	labels := make([]string, 0, len(raw))
	for _, part := range raw {
		l := strings.TrimSpace(part)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		labels = append(labels, l)
	}
	return labels
}
