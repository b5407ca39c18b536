package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/staff-academy/course-platform/internal/auth"
	"github.com/staff-academy/course-platform/internal/config"
	"github.com/staff-academy/course-platform/internal/discord"
	"github.com/staff-academy/course-platform/internal/metrics"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
	"github.com/staff-academy/course-platform/internal/repositories/memory"
	"github.com/staff-academy/course-platform/internal/validator"
)

const testSecret = "test-secret"

var testDiscordConfig = config.DiscordConfig{
	ClientID:     "cid",
	ClientSecret: "csecret",
	RedirectURI:  "http://localhost:8080/api/auth/discord/callback",
	HTTPTimeout:  time.Second,
}

func newAuthService(repo repositories.Repository, client DiscordClient, cfg config.DiscordConfig) (AuthService, *auth.TokenIssuer) {
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	logger := newTestLogger()
	svc := NewAuthService(repo, NewIdentityService(repo, logger), issuer, client, cfg, metrics.New(), logger, validator.New())
	return svc, issuer
}

func seedLocalUser(t *testing.T, store *memory.Store, username, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	user := &models.User{Username: &username, PasswordHash: &hash, Name: "Staff " + username}
	if err := store.User().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return user
}

func TestAuthService_Login(t *testing.T) {
	store := memory.NewStore()
	user := seedLocalUser(t, store, "alice", "correct-horse")
	svc, issuer := newAuthService(store, nil, config.DiscordConfig{})
	ctx := context.Background()

	resp, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.User.ID != user.ID || resp.User.Username != "alice" {
		t.Errorf("Login() user = %+v", resp.User)
	}
	claims, err := issuer.Parse(resp.Token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != user.ID || claims.Ephemeral {
		t.Errorf("claims = %+v", claims)
	}

	stored, _ := store.User().GetByID(ctx, user.ID)
	if stored.LastLogin == nil {
		t.Error("last login should be recorded")
	}
}

func TestAuthService_LoginRejections(t *testing.T) {
	store := memory.NewStore()
	seedLocalUser(t, store, "alice", "correct-horse")
	discordOnly := "d-77"
	_ = store.User().Create(context.Background(), &models.User{Username: strPtr("bob"), Name: "Bob", DiscordID: &discordOnly})

	svc, _ := newAuthService(store, nil, config.DiscordConfig{})

	tests := []struct {
		name    string
		req     models.LoginRequest
		wantErr error
	}{
		{"wrong password", models.LoginRequest{Username: "alice", Password: "nope"}, ErrInvalidCredentials},
		{"unknown user", models.LoginRequest{Username: "mallory", Password: "correct-horse"}, ErrInvalidCredentials},
		{"user without password", models.LoginRequest{Username: "bob", Password: "anything"}, ErrInvalidCredentials},
		{"username is case sensitive", models.LoginRequest{Username: "Alice", Password: "correct-horse"}, ErrInvalidCredentials},
		{"missing password", models.LoginRequest{Username: "alice"}, ErrValidationFailed},
		{"blank username", models.LoginRequest{Username: "   ", Password: "x"}, ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// unknown user and wrong password must be indistinguishable
	_, errUnknown := svc.Login(context.Background(), &models.LoginRequest{Username: "mallory", Password: "x"})
	_, errWrong := svc.Login(context.Background(), &models.LoginRequest{Username: "alice", Password: "x"})
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("distinguishable errors: %q vs %q", errUnknown, errWrong)
	}
}

func TestAuthService_LoginIgnoresLastLoginFailure(t *testing.T) {
	store := memory.NewStore()
	seedLocalUser(t, store, "alice", "correct-horse")
	repo := &faultyRepository{Store: store, touchErr: errStorageDown}
	svc, _ := newAuthService(repo, nil, config.DiscordConfig{})

	if _, err := svc.Login(context.Background(), &models.LoginRequest{Username: "alice", Password: "correct-horse"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func TestAuthService_LoginStorageFailure(t *testing.T) {
	repo := &faultyRepository{Store: memory.NewStore(), lookupErr: errStorageDown}
	svc, _ := newAuthService(repo, nil, config.DiscordConfig{})

	_, err := svc.Login(context.Background(), &models.LoginRequest{Username: "alice", Password: "x"})
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want a storage error", err)
	}
}

func TestAuthService_DiscordNotConfigured(t *testing.T) {
	svc, _ := newAuthService(memory.NewStore(), nil, config.DiscordConfig{})

	if svc.DiscordEnabled() {
		t.Error("DiscordEnabled() = true without configuration")
	}
	if _, err := svc.DiscordAuthorizeURL(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("DiscordAuthorizeURL() error = %v", err)
	}
	_, err := svc.DiscordCallback(context.Background(), "code", "")
	if code, _ := OAuthErrorCode(err); code != CodeNotConfigured {
		t.Errorf("DiscordCallback() code = %q", code)
	}
}

func TestAuthService_DiscordCallbackFailures(t *testing.T) {
	profile := &discord.Profile{ID: "d-1", Username: "learner"}

	tests := []struct {
		name          string
		client        *mockDiscordClient
		code          string
		providerError string
		wantCode      string
		wantDetail    string
		wantExchanges int
	}{
		{
			name:          "provider error short circuits",
			client:        &mockDiscordClient{profile: profile},
			code:          "good",
			providerError: "access_denied",
			wantCode:      "access_denied",
		},
		{
			name:     "missing code",
			client:   &mockDiscordClient{profile: profile},
			wantCode: CodeNoCode,
		},
		{
			name: "token exchange rejected",
			client: &mockDiscordClient{
				exchangeErr: &discord.APIError{Op: discord.OpExchange, Status: http.StatusBadRequest, Detail: "invalid_grant"},
			},
			code:          "stale",
			wantCode:      CodeTokenExchangeFailed,
			wantDetail:    "invalid_grant",
			wantExchanges: 1,
		},
		{
			name: "profile fetch fails",
			client: &mockDiscordClient{
				profileErr: &discord.APIError{Op: discord.OpFetchProfile, Status: http.StatusUnauthorized, Detail: "401: Unauthorized"},
			},
			code:          "good",
			wantCode:      CodeFetchUserFailed,
			wantDetail:    "401: Unauthorized",
			wantExchanges: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAuthService(memory.NewStore(), tt.client, testDiscordConfig)

			token, err := svc.DiscordCallback(context.Background(), tt.code, tt.providerError)
			if err == nil || token != "" {
				t.Fatalf("DiscordCallback() = %q, %v; want error", token, err)
			}
			code, detail := OAuthErrorCode(err)
			if code != tt.wantCode || detail != tt.wantDetail {
				t.Errorf("OAuthErrorCode() = %q, %q; want %q, %q", code, detail, tt.wantCode, tt.wantDetail)
			}
			if tt.client.exchangeCalls != tt.wantExchanges {
				t.Errorf("exchange calls = %d, want %d", tt.client.exchangeCalls, tt.wantExchanges)
			}
		})
	}
}

func TestAuthService_DiscordRoleGate(t *testing.T) {
	gated := testDiscordConfig
	gated.GuildID = "g1"
	gated.RequiredRoleID = "r-staff"
	gated.AdminRoleID = "r-admin"

	strict := gated
	strict.StrictRoleCheck = true

	profile := &discord.Profile{ID: "d-1", Username: "learner"}
	memberErr := &discord.APIError{Op: discord.OpFetchMember, Status: http.StatusNotFound, Detail: "Unknown Guild"}

	tests := []struct {
		name     string
		cfg      config.DiscordConfig
		client   *mockDiscordClient
		wantCode string
	}{
		{"has required role", gated, &mockDiscordClient{profile: profile, member: &discord.Member{Roles: []string{"r-staff"}}}, ""},
		{"has admin role", gated, &mockDiscordClient{profile: profile, member: &discord.Member{Roles: []string{"r-admin"}}}, ""},
		{"lacks roles", gated, &mockDiscordClient{profile: profile, member: &discord.Member{Roles: []string{"r-basic"}}}, CodeNoPermission},
		{"member lookup fails leniently", gated, &mockDiscordClient{profile: profile, memberErr: memberErr}, ""},
		{"member lookup fails strictly", strict, &mockDiscordClient{profile: profile, memberErr: memberErr}, CodeFetchMemberFailed},
		{"gate disabled skips lookup", testDiscordConfig, &mockDiscordClient{profile: profile}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			svc, _ := newAuthService(store, tt.client, tt.cfg)

			token, err := svc.DiscordCallback(context.Background(), "good", "")
			if tt.wantCode == "" {
				if err != nil || token == "" {
					t.Fatalf("DiscordCallback() = %q, %v; want token", token, err)
				}
			} else {
				if code, _ := OAuthErrorCode(err); code != tt.wantCode {
					t.Fatalf("DiscordCallback() error code = %q, want %q", code, tt.wantCode)
				}
				if _, getErr := store.User().GetByDiscordID(context.Background(), "d-1"); !errors.Is(getErr, repositories.ErrNotFound) {
					t.Error("a rejected login must not create a user")
				}
			}
			if !tt.cfg.RoleGateEnabled() && tt.client.memberCalls != 0 {
				t.Errorf("member lookups = %d with the gate disabled", tt.client.memberCalls)
			}
		})
	}
}

func TestAuthService_DiscordLoginCreatesThenReuses(t *testing.T) {
	store := memory.NewStore()
	client := &mockDiscordClient{profile: &discord.Profile{ID: "d-1", Username: "learner", GlobalName: "Learner One"}}
	svc, issuer := newAuthService(store, client, testDiscordConfig)
	ctx := context.Background()

	first, err := svc.DiscordCallback(ctx, "good", "")
	if err != nil {
		t.Fatalf("first DiscordCallback() error = %v", err)
	}
	firstClaims, _ := issuer.Parse(first)

	client.profile = &discord.Profile{ID: "d-1", Username: "learner", GlobalName: "Renamed"}
	second, err := svc.DiscordCallback(ctx, "good", "")
	if err != nil {
		t.Fatalf("second DiscordCallback() error = %v", err)
	}
	secondClaims, _ := issuer.Parse(second)

	if firstClaims.UserID != secondClaims.UserID {
		t.Errorf("repeat login created a second user: %s vs %s", firstClaims.UserID, secondClaims.UserID)
	}
	if secondClaims.Name != "Renamed" || secondClaims.DiscordID != "d-1" || secondClaims.Ephemeral {
		t.Errorf("claims = %+v", secondClaims)
	}
	settings, err := store.Settings().Get(ctx, firstClaims.UserID)
	if err != nil || settings.Theme != models.ThemeDark {
		t.Errorf("default settings = %+v, %v", settings, err)
	}
}

func TestAuthService_DiscordLoginStorageDown(t *testing.T) {
	repo := &faultyRepository{Store: memory.NewStore(), lookupErr: errStorageDown}
	client := &mockDiscordClient{profile: &discord.Profile{ID: "d-5", Username: "learner"}}
	svc, issuer := newAuthService(repo, client, testDiscordConfig)

	token, err := svc.DiscordCallback(context.Background(), "good", "")
	if err != nil {
		t.Fatalf("DiscordCallback() error = %v", err)
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !claims.Ephemeral || claims.UserID != EphemeralUserID("d-5") {
		t.Errorf("claims = %+v, want temporary identity", claims)
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	svc, issuer := newAuthService(memory.NewStore(), nil, config.DiscordConfig{})
	ctx := context.Background()

	token, _ := issuer.Issue(&models.User{ID: "u-1", Name: "Someone"})
	claims, err := svc.Authenticate(ctx, token)
	if err != nil || claims.UserID != "u-1" {
		t.Fatalf("Authenticate() = %+v, %v", claims, err)
	}

	foreign, _ := auth.NewTokenIssuer("other-secret", time.Hour).Issue(&models.User{ID: "u-1"})
	for name, tok := range map[string]string{"empty": "", "garbage": "not-a-jwt", "wrong key": foreign} {
		if _, err := svc.Authenticate(ctx, tok); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("%s: Authenticate() error = %v, want ErrUnauthenticated", name, err)
		}
	}
}
