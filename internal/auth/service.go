// Package auth はGitHub OAuth認証フロー、セッション管理、閲覧者の解決を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Login          string // GitHubのログイン名
	AvatarURL      string
	Provider       string // "github"
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// テストではモックに差し替える。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）

	// AdminGitHubLogins はログイン時にadmin権限を付与するGitHubログイン名（大文字小文字を区別しない）。
	AdminGitHubLogins []string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	profileRepo repository.ProfileRepository
	roleRepo    repository.UserRoleRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	profileRepo repository.ProfileRepository,
	roleRepo repository.UserRoleRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		profileRepo: profileRepo,
		roleRepo:    roleRepo,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
// プロフィールが未作成であればGitHubのログイン名とアバターで作成する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identityとユーザーを特定。未登録なら作成する
	userID, err := s.resolveUser(ctx, userInfo)
	if err != nil {
		return nil, err
	}

	// 3. プロフィールと権限を準備
	if err := s.ensureProfile(ctx, userID, userInfo); err != nil {
		return nil, err
	}
	if err := s.grantConfiguredAdmin(ctx, userID, userInfo.Login); err != nil {
		return nil, err
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// resolveUser はOAuthユーザー情報に対応するユーザーIDを返す。
// 既存ユーザーは連絡先をGitHubの値で更新し、未登録ならusersとidentitiesを作成する。
// 初回ログインが並行して重複した場合は先に作成されたユーザーを使う。
func (s *Service) resolveUser(ctx context.Context, userInfo *OAuthUserInfo) (string, error) {
	identity, user, err := s.identRepo.FindUserByIdentity(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return "", fmt.Errorf("failed to find identity: %w", err)
	}
	if identity != nil {
		s.refreshContact(ctx, user, userInfo)
		slog.Info("existing user logged in",
			slog.String("user_id", identity.UserID),
			slog.String("provider", userInfo.Provider),
		)
		return identity.UserID, nil
	}

	now := time.Now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     userInfo.Email,
		Name:      userInfo.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	err = s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity)
	if errors.Is(err, repository.ErrDuplicate) {
		identity, _, err = s.identRepo.FindUserByIdentity(ctx, userInfo.Provider, userInfo.ProviderUserID)
		if err != nil {
			return "", fmt.Errorf("failed to find identity after duplicate: %w", err)
		}
		if identity == nil {
			return "", fmt.Errorf("identity %s/%s vanished after duplicate insert", userInfo.Provider, userInfo.ProviderUserID)
		}
		slog.Info("concurrent first login resolved",
			slog.String("user_id", identity.UserID),
			slog.String("provider", userInfo.Provider),
		)
		return identity.UserID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("github_username", userInfo.Login),
		slog.String("provider", userInfo.Provider),
	)
	return newUser.ID, nil
}

// refreshContact はGitHub側で変わったメールアドレスと表示名を反映する。
// 失敗してもログインは継続する。
func (s *Service) refreshContact(ctx context.Context, user *model.User, userInfo *OAuthUserInfo) {
	if user == nil || (user.Email == userInfo.Email && user.Name == userInfo.Name) {
		return
	}
	if _, err := s.userRepo.UpdateContact(ctx, user.ID, userInfo.Email, userInfo.Name, time.Now()); err != nil {
		slog.Warn("failed to refresh user contact",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// ResolveViewer はセッションIDから閲覧者のスナップショットを生成する。
// セッションが存在しないか期限切れの場合はnilを返す。
func (s *Service) ResolveViewer(ctx context.Context, sessionID string) (*model.Viewer, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	isAdmin, err := s.roleRepo.HasRole(ctx, session.UserID, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to check role: %w", err)
	}

	return &model.Viewer{UserID: session.UserID, IsAdmin: isAdmin}, nil
}

// ensureProfile はプロフィールが未作成の場合のみGitHubの情報で作成する。
// 既存プロフィールの表示名などはユーザーの編集内容を優先して上書きしない。
func (s *Service) ensureProfile(ctx context.Context, userID string, info *OAuthUserInfo) error {
	now := time.Now()
	profile := &model.Profile{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if info.Name != "" {
		profile.DisplayName = &info.Name
	}
	if info.Login != "" {
		profile.GitHubUsername = &info.Login
	}
	if info.AvatarURL != "" {
		profile.GitHubAvatarURL = &info.AvatarURL
	}

	created, err := s.profileRepo.CreateIfAbsent(ctx, profile)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if created {
		slog.Info("profile created",
			slog.String("user_id", userID),
			slog.String("github_username", info.Login),
		)
	}
	return nil
}

// grantConfiguredAdmin は設定で指定されたGitHubログイン名のユーザーにadmin権限を付与する。
func (s *Service) grantConfiguredAdmin(ctx context.Context, userID, login string) error {
	if login == "" {
		return nil
	}
	for _, admin := range s.config.AdminGitHubLogins {
		if !strings.EqualFold(admin, login) {
			continue
		}
		if err := s.roleRepo.Grant(ctx, userID, model.RoleAdmin); err != nil {
			return fmt.Errorf("failed to grant admin role: %w", err)
		}
		slog.Info("admin role granted",
			slog.String("user_id", userID),
			slog.String("github_username", login),
		)
		return nil
	}
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
