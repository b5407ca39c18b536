package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Scopes requested on the authorize redirect
var Scopes = []string{"identify", "email", "guilds.members.read"}

const (
	DefaultAPIBaseURL = "https://discord.com/api"
	cdnBaseURL        = "https://cdn.discordapp.com"
	maxDetailLen      = 300
)

// Provider operations, used as APIError.Op
const (
	OpExchange     = "token_exchange"
	OpFetchProfile = "fetch_user"
	OpFetchMember  = "fetch_member"
)

// APIError describes a failed call to the Discord API
type APIError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("discord %s failed with status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("discord %s failed: %s", e.Op, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Profile is the subset of /users/@me the platform uses
type Profile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
}

// DisplayName prefers the global display name over the account username
func (p *Profile) DisplayName() string {
	if p.GlobalName != "" {
		return p.GlobalName
	}
	return p.Username
}

// AvatarURL returns the CDN url of the avatar, or empty when none is set
func (p *Profile) AvatarURL() string {
	if p.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("%s/avatars/%s/%s.png", cdnBaseURL, p.ID, p.Avatar)
}

// Member is the caller's membership in one guild
type Member struct {
	Nick  string   `json:"nick"`
	Roles []string `json:"roles"`
}

// HasAnyRole reports whether the member holds at least one of roleIDs
func (m *Member) HasAnyRole(roleIDs ...string) bool {
	for _, held := range m.Roles {
		for _, want := range roleIDs {
			if want != "" && held == want {
				return true
			}
		}
	}
	return false
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string
	Timeout      time.Duration
}

// Client talks to Discord with a bounded timeout and no retries
type Client struct {
	oauth   oauth2.Config
	apiBase string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = DefaultAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth2/authorize",
				TokenURL:  base + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// AuthorizeURL builds the provider consent URL. No state parameter is sent.
func (c *Client) AuthorizeURL() string {
	return c.oauth.AuthCodeURL("")
}

// Exchange trades an authorization code for an access token
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		apiErr := &APIError{Op: OpExchange, Detail: err.Error(), Err: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil {
				apiErr.Status = retrieveErr.Response.StatusCode
			}
			apiErr.Detail = retrieveDetail(retrieveErr)
		}
		c.logger.WarnContext(ctx, "Discord token exchange failed",
			"status", apiErr.Status,
			"detail", apiErr.Detail)
		return nil, apiErr
	}
	return token, nil
}

// FetchProfile reads the account behind accessToken
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	if err := c.getJSON(ctx, OpFetchProfile, "/users/@me", accessToken, &profile); err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, &APIError{Op: OpFetchProfile, Detail: "profile has no id"}
	}
	return &profile, nil
}

// FetchMember reads the caller's roles in guildID
func (c *Client) FetchMember(ctx context.Context, accessToken, guildID string) (*Member, error) {
	path := "/users/@me/guilds/" + url.PathEscape(guildID) + "/member"
	var member Member
	if err := c.getJSON(ctx, OpFetchMember, path, accessToken, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) getJSON(ctx context.Context, op, path, accessToken string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return &APIError{Op: op, Detail: err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Discord request failed", "op", op, "error", err)
		return &APIError{Op: op, Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Detail: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, Status: resp.StatusCode, Detail: truncate(string(body))}
		c.logger.WarnContext(ctx, "Discord API returned an error",
			"op", op,
			"status", resp.StatusCode,
			"detail", apiErr.Detail)
		return apiErr
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Detail: "invalid response body", Err: err}
	}
	return nil
}

func retrieveDetail(err *oauth2.RetrieveError) string {
	if err.ErrorCode != "" {
		if err.ErrorDescription != "" {
			return err.ErrorCode + ": " + err.ErrorDescription
		}
		return err.ErrorCode
	}
	if len(err.Body) > 0 {
		return truncate(string(err.Body))
	}
	return err.Error()
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxDetailLen {
		return s[:maxDetailLen]
	}
	return s
}
