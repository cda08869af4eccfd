// Package githubapi はGitHub REST APIの呼び出しを提供する。
// 登録プロジェクトのメタデータ取得とマージ済みプルリクエストの列挙を行う。
package githubapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/hitoshi/prboard/internal/model"
)

const (
	// perPage は1ページあたりの取得件数（GitHub APIの上限）。
	perPage = 100
	// userAgent はGitHub APIへ送るUser-Agent。
	userAgent = "prboard/1.0"
)

var (
	// ErrNotFound はリポジトリが存在しないか参照できない場合のエラー。
	ErrNotFound = errors.New("githubapi: repository not found")
)

// RateLimitedError はGitHub APIのレート制限に達したことを表す。
type RateLimitedError struct {
	Reset time.Time
}

// Error はerrorインターフェースを実装する。
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("githubapi: rate limited until %s", e.Reset.Format(time.RFC3339))
}

// PullRequest はマージ済みプルリクエストの取り込みに必要な情報。
type PullRequest struct {
	Number      int
	Title       string
	URL         string
	AuthorLogin string
	MergedAt    time.Time
}

// Client はGitHub REST APIのクライアント。
type Client struct {
	client *github.Client
	logger *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// tokenが空の場合は未認証クライアントとなる（レート制限が厳しい）。
func NewClient(token string, logger *slog.Logger) *Client {
	var tc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc = oauth2.NewClient(context.Background(), ts)
	}
	return newClient(github.NewClient(tc), logger)
}

func newClient(gh *github.Client, logger *slog.Logger) *Client {
	gh.UserAgent = userAgent
	return &Client{client: gh, logger: logger}
}

// SetBaseURL はAPIのベースURLを差し替える。テストとGitHub Enterprise向け。
func (c *Client) SetBaseURL(rawURL string) error {
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("ベースURLのパースに失敗しました: %w", err)
	}
	c.client.BaseURL = u
	return nil
}

// RepoMetadata はリポジトリのスター数、フォーク数、説明などを取得する。
func (c *Client) RepoMetadata(ctx context.Context, owner, repo string) (*model.RepoMetadata, error) {
	r, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, c.classify(err, owner, repo)
	}

	return &model.RepoMetadata{
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Description: r.GetDescription(),
	}, nil
}

// ListMergedPullRequests はsince以降に更新されたクローズ済みPRのうち、
// マージされたものを更新日時の降順で返す。
// 更新日時がsinceより古いPRに到達した時点でページングを打ち切る。
func (c *Client) ListMergedPullRequests(ctx context.Context, owner, repo string, since time.Time) ([]PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:     "closed",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	var merged []PullRequest
	pages := 0
	for {
		prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, c.classify(err, owner, repo)
		}
		pages++

		reachedOld := false
		for _, pr := range prs {
			if !since.IsZero() && pr.GetUpdatedAt().Time.Before(since) {
				reachedOld = true
				break
			}
			if pr.MergedAt == nil {
				continue
			}
			merged = append(merged, PullRequest{
				Number:      pr.GetNumber(),
				Title:       pr.GetTitle(),
				URL:         pr.GetHTMLURL(),
				AuthorLogin: pr.GetUser().GetLogin(),
				MergedAt:    pr.GetMergedAt().Time,
			})
		}

		if reachedOld || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.Debug("マージ済みPRを取得しました",
		slog.String("repo", owner+"/"+repo),
		slog.Int("pages", pages),
		slog.Int("merged", len(merged)),
	)
	return merged, nil
}

// classify はgo-githubのエラーをパッケージのエラーに変換する。
func (c *Client) classify(err error, owner, repo string) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitedError{Reset: rateErr.Rate.Reset.Time}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &RateLimitedError{Reset: time.Now().Add(abuseErr.GetRetryAfter())}
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s/%s: %w", owner, repo, ErrNotFound)
	}
	return fmt.Errorf("GitHub APIの呼び出しに失敗しました (%s/%s): %w", owner, repo, err)
}
