// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, project, leaderboard, profile, store, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidRepoURL       = "INVALID_REPO_URL"
	ErrCodeInvalidLeaderboard   = "INVALID_LEADERBOARD"
	ErrCodeInvalidDateRange     = "INVALID_DATE_RANGE"
	ErrCodeDuplicateProject     = "DUPLICATE_PROJECT"
	ErrCodeProjectNotFound      = "PROJECT_NOT_FOUND"
	ErrCodeLeaderboardNotFound  = "LEADERBOARD_NOT_FOUND"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeStoreError           = "STORE_ERROR"
	ErrCodeGitHubUnavailable    = "GITHUB_UNAVAILABLE"
	ErrCodeCSRFTokenInvalid     = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// エラーカテゴリ
const (
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryNotFound   = "not_found"
	CategoryStore      = "store"
	CategorySystem     = "system"
)

// IsValidation はバリデーションエラーかどうかを返す。
func (e *APIError) IsValidation() bool {
	return e.Category == CategoryValidation
}

// IsNotFound は対象未検出エラーかどうかを返す。
func (e *APIError) IsNotFound() bool {
	return e.Category == CategoryNotFound
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: CategoryAuth,
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidRepoURLError はGitHubリポジトリURLとして解釈できない場合のエラーを生成する。
func NewInvalidRepoURLError(rawURL string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRepoURL,
		Message:  fmt.Sprintf("Invalid GitHub URL: %s", rawURL),
		Category: CategoryValidation,
		Action:   "https://github.com/<owner>/<repo> 形式のURLを入力してください。",
	}
}

// NewInvalidLeaderboardError はリーダーボード入力値が不正な場合のエラーを生成する。
func NewInvalidLeaderboardError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLeaderboard,
		Message:  fmt.Sprintf("リーダーボードの入力値が不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "名前と開始日時・終了日時を入力してください。",
	}
}

// NewInvalidDateRangeError は日時の形式が不正な場合のエラーを生成する。
func NewInvalidDateRangeError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDateRange,
		Message:  fmt.Sprintf("日時の形式が不正です: %s", field),
		Category: CategoryValidation,
		Action:   "日時はRFC3339形式（例: 2024-10-01T00:00:00Z）で指定してください。",
	}
}

// NewDuplicateProjectError は同じリポジトリが既に登録されている場合のエラーを生成する。
func NewDuplicateProjectError(fullName string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateProject,
		Message:  fmt.Sprintf("このリポジトリは既に登録されています: %s", fullName),
		Category: CategoryValidation,
		Action:   "プロジェクト一覧から該当リポジトリを確認してください。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", projectID),
		Category: CategoryNotFound,
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewLeaderboardNotFoundError はリーダーボード未検出エラーを生成する。
func NewLeaderboardNotFoundError(leaderboardID string) *APIError {
	return &APIError{
		Code:     ErrCodeLeaderboardNotFound,
		Message:  fmt.Sprintf("指定されたリーダーボードが見つかりません: %s", leaderboardID),
		Category: CategoryNotFound,
		Action:   "リーダーボードIDを確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("プロフィールが見つかりません: %s", userID),
		Category: CategoryNotFound,
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: CategoryNotFound,
		Action:   "ログインし直してください。",
	}
}

// NewGitHubUnavailableError はGitHub APIからデータを取得できなかった場合のエラーを生成する。
func NewGitHubUnavailableError(fullName string) *APIError {
	return &APIError{
		Code:     ErrCodeGitHubUnavailable,
		Message:  fmt.Sprintf("GitHubからリポジトリ情報を取得できませんでした: %s", fullName),
		Category: CategorySystem,
		Action:   "リポジトリが公開されているか確認し、しばらく待ってから再度操作してください。",
	}
}

// NewCSRFTokenInvalidError はCSRFトークン検証に失敗した場合のエラーを生成する。
func NewCSRFTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: CategoryAuth,
		Action:   "ページを再読み込みしてから再度操作してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: CategorySystem,
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// StoreError はストアが読み書きを拒否したことを表す。
// Op は "insert failed" のような人間向けの操作コンテキスト。
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError はStoreErrorを生成する。
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// Error はerrorインターフェースを実装する。
func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StoreError) Unwrap() error {
	return e.Err
}

// APIError はStoreErrorをユーザー通知用のAPIErrorに変換する。
// ストアのエラー内容はそのまま伝え、再試行は行わない。
func (e *StoreError) APIError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreError,
		Message:  e.Error(),
		Category: CategoryStore,
		Action:   "しばらく待ってから再度操作してください。",
	}
}
