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
)

const (
	googleAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL     = "https://oauth2.googleapis.com/token"
	googleProfileURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleProvider talks to the Google OAuth API.
type GoogleProvider struct {
	client       HTTPClient
	clientID     string
	clientSecret string

	authorizeURL string
	tokenURL     string
	profileURL   string

	now func() time.Time
}

// NewGoogleProvider creates a GoogleProvider using the default Google endpoints.
func NewGoogleProvider(client HTTPClient, clientID, clientSecret string) *GoogleProvider {
	return &GoogleProvider{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
		authorizeURL: googleAuthorizeURL,
		tokenURL:     googleTokenURL,
		profileURL:   googleProfileURL,
		now:          time.Now,
	}
}

func (p *GoogleProvider) Name() oauthDomain.Provider {
	return oauthDomain.Google
}

func (p *GoogleProvider) AuthorizationURL(state, codeChallenge, redirectURI string, scopes []string) string {
	query := url.Values{}
	query.Set("client_id", p.clientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("state", state)
	query.Set("code_challenge", codeChallenge)
	query.Set("code_challenge_method", pkce.ChallengeMethodS256)
	query.Set("response_type", "code")
	// offline access is what makes Google return a refresh token
	query.Set("access_type", "offline")
	if len(scopes) > 0 {
		query.Set("scope", strings.Join(scopes, " "))
	}
	return p.authorizeURL + "?" + query.Encode()
}

type googleTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*oauthDomain.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("code", code)
	form.Set("code_verifier", codeVerifier)
	form.Set("redirect_uri", redirectURI)

	return p.tokenRequest(ctx, form)
}

func (p *GoogleProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauthDomain.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("refresh_token", refreshToken)

	return p.tokenRequest(ctx, form)
}

func (p *GoogleProvider) tokenRequest(ctx context.Context, form url.Values) (*oauthDomain.TokenSet, error) {
	var resp googleTokenResponse
	if err := p.client.PostForm(ctx, p.tokenURL, nil, []byte(form.Encode()), &resp); err != nil {
		return nil, providerExchangeError(err)
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

type googleProfileResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, accessToken string) (*oauthDomain.Profile, error) {
	header := http.Header{"Authorization": []string{"Bearer " + accessToken}}

	var resp googleProfileResponse
	if err := p.client.GetJSON(ctx, p.profileURL, header, &resp); err != nil {
		return nil, apperrors.Wrap(oauthDomain.ErrProfileFetchFailed, err.Error())
	}
	return &oauthDomain.Profile{
		ProviderAccountID: resp.ID,
		Username:          resp.Email,
		Email:             resp.Email,
		Name:              resp.Name,
		AvatarURL:         resp.Picture,
	}, nil
}
