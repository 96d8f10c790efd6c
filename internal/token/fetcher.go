package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperror "qqbot-service/internal/error"
)

// DefaultTokenURL is the platform endpoint issuing app access tokens.
const DefaultTokenURL = "https://bots.qq.com/app/getAppAccessToken"

// Credentials identify one bot application.
type Credentials struct {
	AppID        string
	ClientSecret string
}

// Grant is a freshly issued access token.
type Grant struct {
	AccessToken string
	ExpiresIn   *int64 // seconds, nil when the endpoint omitted it
}

// Fetcher obtains a new access token from the token endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, creds Credentials) (Grant, error)
}

// HTTPFetcher fetches tokens over HTTP
type HTTPFetcher struct {
	tokenURL   string
	httpClient *http.Client
}

// ------------------------------------------------------------------------------------------------------
func NewHTTPFetcher(tokenURL string, timeout time.Duration) *HTTPFetcher {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &HTTPFetcher{
		tokenURL: tokenURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type tokenRequest struct {
	AppID        string `json:"appId"`
	ClientSecret string `json:"clientSecret"`
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   *seconds `json:"expires_in"`
}

// seconds accepts both 7200 and "7200".
type seconds int64

func (s *seconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expires_in %s: %w", data, err)
	}
	*s = seconds(v)
	return nil
}

// ------------------------------------------------------------------------------------------------------
// Fetch posts the app credentials and returns the issued token. Every failure is a
// CredentialFetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, creds Credentials) (Grant, error) {
	jsonData, err := json.Marshal(tokenRequest{AppID: creds.AppID, ClientSecret: creds.ClientSecret})
	if err != nil {
		return Grant{}, apperror.NewCredentialFetchError("failed to marshal token request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return Grant{}, apperror.NewCredentialFetchError("failed to create token request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Grant{}, apperror.NewCredentialFetchError("failed to reach token endpoint", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Grant{}, apperror.NewCredentialFetchError("failed to read token response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Grant{}, apperror.NewCredentialFetchError(
			fmt.Sprintf("token endpoint returned status %d, body: %s", resp.StatusCode, string(bodyBytes)),
			nil,
		)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(bodyBytes, &tokenResp); err != nil {
		return Grant{}, apperror.NewCredentialFetchError(
			fmt.Sprintf("failed to decode token response, body: %s", string(bodyBytes)),
			err,
		)
	}

	if tokenResp.AccessToken == "" {
		return Grant{}, apperror.NewCredentialFetchError(
			fmt.Sprintf("token response lacks access_token, body: %s", string(bodyBytes)),
			apperror.ErrMissingAccessToken,
		)
	}

	grant := Grant{AccessToken: tokenResp.AccessToken}
	if tokenResp.ExpiresIn != nil {
		expiresIn := int64(*tokenResp.ExpiresIn)
		grant.ExpiresIn = &expiresIn
	}
	return grant, nil
}
