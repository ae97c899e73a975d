package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/gateproof/authcore/internal/errors"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
	"github.com/gateproof/authcore/internal/pkce"
	"github.com/gateproof/authcore/internal/resilience"
)

const (
	githubAuthorizeURL = "https://github.com/login/oauth/authorize"
	githubTokenURL     = "https://github.com/login/oauth/access_token"
	githubProfileURL   = "https://api.github.com/user"
)

// GithubProvider talks to the GitHub OAuth API. GitHub reports token-endpoint
// errors in a 200 response body, so the error field is checked explicitly.
type GithubProvider struct {
	client       HTTPClient
	clientID     string
	clientSecret string

	authorizeURL string
	tokenURL     string
	profileURL   string

	now func() time.Time
}

// NewGithubProvider creates a GithubProvider using the default GitHub endpoints.
func NewGithubProvider(client HTTPClient, clientID, clientSecret string) *GithubProvider {
	return &GithubProvider{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
		authorizeURL: githubAuthorizeURL,
		tokenURL:     githubTokenURL,
		profileURL:   githubProfileURL,
		now:          time.Now,
	}
}

func (p *GithubProvider) Name() oauthDomain.Provider {
	return oauthDomain.Github
}

func (p *GithubProvider) AuthorizationURL(state, codeChallenge, redirectURI string, scopes []string) string {
	query := url.Values{}
	query.Set("client_id", p.clientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("state", state)
	query.Set("code_challenge", codeChallenge)
	query.Set("code_challenge_method", pkce.ChallengeMethodS256)
	query.Set("response_type", "code")
	if len(scopes) > 0 {
		query.Set("scope", strings.Join(scopes, " "))
	}
	return p.authorizeURL + "?" + query.Encode()
}

type githubTokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p *GithubProvider) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*oauthDomain.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("code", code)
	form.Set("code_verifier", codeVerifier)
	form.Set("redirect_uri", redirectURI)

	return p.tokenRequest(ctx, form)
}

func (p *GithubProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauthDomain.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("refresh_token", refreshToken)

	return p.tokenRequest(ctx, form)
}

func (p *GithubProvider) tokenRequest(ctx context.Context, form url.Values) (*oauthDomain.TokenSet, error) {
	header := http.Header{"Accept": []string{"application/json"}}

	var resp githubTokenResponse
	if err := p.client.PostForm(ctx, p.tokenURL, header, []byte(form.Encode()), &resp); err != nil {
		return nil, providerExchangeError(err)
	}
	if resp.Error != "" {
		return nil, apperrors.Wrap(oauthDomain.ErrTokenExchangeFailed, resp.Error+": "+resp.ErrorDescription)
	}
	if resp.AccessToken == "" {
		return nil, oauthDomain.ErrTokenExchangeFailed
	}

	tokens := &oauthDomain.TokenSet{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
	}
	if resp.ExpiresIn > 0 {
		expiresAt := p.now().UTC().Add(time.Duration(resp.ExpiresIn) * time.Second)
		tokens.ExpiresAt = &expiresAt
	}
	return tokens, nil
}

type githubProfileResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

func (p *GithubProvider) FetchProfile(ctx context.Context, accessToken string) (*oauthDomain.Profile, error) {
	header := http.Header{
		"Authorization": []string{"Bearer " + accessToken},
		"Accept":        []string{"application/vnd.github+json"},
	}

	var resp githubProfileResponse
	if err := p.client.GetJSON(ctx, p.profileURL, header, &resp); err != nil {
		return nil, apperrors.Wrap(oauthDomain.ErrProfileFetchFailed, err.Error())
	}
	return &oauthDomain.Profile{
		ProviderAccountID: strconvInt64(resp.ID),
		Username:          resp.Login,
		Email:             resp.Email,
		Name:              resp.Name,
		AvatarURL:         resp.AvatarURL,
	}, nil
}

// providerExchangeError maps transport errors to the exchange failure
// vocabulary, surfacing the provider's body when one was returned.
func providerExchangeError(err error) error {
	var httpErr *resilience.HTTPError
	if apperrors.As(err, &httpErr) {
		return apperrors.Wrap(oauthDomain.ErrTokenExchangeFailed, httpErr.Body)
	}
	if apperrors.Is(err, resilience.ErrCircuitOpen) {
		return err
	}
	return apperrors.Wrap(oauthDomain.ErrTokenExchangeFailed, err.Error())
}
