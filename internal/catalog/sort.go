package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hitoshi/prboard/internal/model"
)

// SortField はプロジェクト一覧の並び替えキー。
type SortField string

const (
	SortNone      SortField = ""
	SortStars     SortField = "stars"
	SortForks     SortField = "forks"
	SortCreatedAt SortField = "created_at"
	SortName      SortField = "name"
)

// SortOrder は並び順。
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSort はクエリパラメータの並び替え指定を検証する。
// orderが空の場合はdescとして扱う。
func ParseSort(field, order string) (SortField, SortOrder, error) {
	f := SortField(field)
	switch f {
	case SortNone, SortStars, SortForks, SortCreatedAt, SortName:
	default:
		return "", "", model.NewInvalidRequestError(fmt.Sprintf("sortには stars, forks, created_at, name のいずれかを指定してください: %s", field))
	}

	o := SortOrder(order)
	switch o {
	case "":
		o = OrderDesc
	case OrderAsc, OrderDesc:
	default:
		return "", "", model.NewInvalidRequestError(fmt.Sprintf("orderには asc または desc を指定してください: %s", order))
	}
	return f, o, nil
}

// Sort はプロジェクトを指定キーで安定ソートした新しいスライスを返す。
// fieldがSortNoneの場合は入力の順序をそのまま返す。
func Sort(projects []*model.Project, field SortField, order SortOrder) []*model.Project {
	sorted := make([]*model.Project, len(projects))
	copy(sorted, projects)
	if field == SortNone {
		return sorted
	}

	less := func(a, b *model.Project) bool {
		switch field {
		case SortStars:
			return a.Stars < b.Stars
		case SortForks:
			return a.Forks < b.Forks
		case SortCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return strings.ToLower(a.FullName()) < strings.ToLower(b.FullName())
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if order == OrderAsc {
			return less(sorted[i], sorted[j])
		}
		return less(sorted[j], sorted[i])
	})
	return sorted
}
