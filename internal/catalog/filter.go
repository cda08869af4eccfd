// Package catalog はプロジェクト一覧の検索・絞り込み・並び替えを提供する。
package catalog

import (
	"sort"
	"strings"

	"github.com/hitoshi/prboard/internal/model"
)

// AllLabels はラベルによる絞り込みを行わないことを表す。
const AllLabels = "all"

// Filter はqueryとlabelFilterの両方に一致するプロジェクトを、入力の順序を保ったまま返す。
//
// queryは大文字小文字を区別せず、github_repo、github_owner、description（nilは空文字扱い）、
// 各ラベルのいずれかに部分一致すれば一致とみなす。空のqueryはすべてに一致する。
// labelFilterがAllLabelsの場合は制約なし、それ以外はラベルに完全一致するものだけを残す。
func Filter(projects []*model.Project, query, labelFilter string) []*model.Project {
	q := strings.ToLower(query)
	result := make([]*model.Project, 0, len(projects))
	for _, p := range projects {
		if p == nil {
			continue
		}
		if !matchesQuery(p, q) || !matchesLabel(p, labelFilter) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// AvailableLabels は全プロジェクトのラベルを重複なく辞書順で返す。
func AvailableLabels(projects []*model.Project) []string {
	seen := make(map[string]struct{})
	labels := make([]string, 0)
	for _, p := range projects {
		if p == nil {
			continue
		}
		for _, l := range p.Labels {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}

func matchesQuery(p *model.Project, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.GitHubRepo), lowerQuery) ||
		strings.Contains(strings.ToLower(p.GitHubOwner), lowerQuery) ||
		strings.Contains(strings.ToLower(p.DescriptionOrEmpty()), lowerQuery) {
		return true
	}
	for _, l := range p.Labels {
		if strings.Contains(strings.ToLower(l), lowerQuery) {
			return true
		}
	}
	return false
}

func matchesLabel(p *model.Project, labelFilter string) bool {
	if labelFilter == AllLabels {
		return true
	}
	for _, l := range p.Labels {
		if l == labelFilter {
			return true
		}
	}
	return false
}
