package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Shahir-collab/bus-routes-website/pkg/session"
)

const identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
const secureTokenURL = "https://securetoken.googleapis.com/v1"

// tokenGrant is an ID token with the refresh token that renews it.
type tokenGrant struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
	Expiry       time.Time
}

// restClient talks to the Identity Toolkit and Secure Token REST APIs, the
// parts of Firebase Authentication the Admin SDK does not cover.
type restClient struct {
	httpClient *http.Client
	apiKey     string

	identityToolkitURL string
	secureTokenURL     string
}

func newRESTClient(apiKey string) *restClient {
	return &restClient{
		httpClient:         &http.Client{Timeout: 15 * time.Second},
		apiKey:             apiKey,
		identityToolkitURL: identityToolkitURL,
		secureTokenURL:     secureTokenURL,
	}
}

type restError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// mapRESTError turns an Identity Toolkit error code into a session error.
// Codes can carry a detail suffix, e.g. "WEAK_PASSWORD : Password should be at least 6 characters".
func mapRESTError(op string, statusCode int, message string) error {
	code, _, _ := strings.Cut(message, " ")

	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL", "MISSING_PASSWORD":
		return fmt.Errorf("identity: %s: %w", op, session.ErrInvalidCredentials)
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "USER_NOT_FOUND", "INVALID_GRANT_TYPE", "MISSING_REFRESH_TOKEN":
		return fmt.Errorf("identity: %s: %s: %w", op, code, session.ErrInvalidCredentials)
	case "EMAIL_EXISTS":
		return fmt.Errorf("identity: %s: %w", op, session.ErrEmailInUse)
	case "WEAK_PASSWORD":
		return fmt.Errorf("identity: %s: %w", op, session.ErrWeakPassword)
	}

	if message == "" {
		message = http.StatusText(statusCode)
	}

	return fmt.Errorf("identity: %s: %d %s: %w", op, statusCode, message, session.ErrProviderUnreachable)
}

func (r *restClient) do(request *http.Request, op string, value any) error {
	response, err := r.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("identity: %s: %w: %w", op, session.ErrProviderUnreachable, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		var payload restError
		json.NewDecoder(response.Body).Decode(&payload)

		return mapRESTError(op, response.StatusCode, payload.Error.Message)
	}

	if err := json.NewDecoder(response.Body).Decode(value); err != nil {
		return fmt.Errorf("identity: %s: decode: %w: %w", op, session.ErrProviderUnreachable, err)
	}

	return nil
}

func expiryFrom(expiresIn string) time.Time {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}

	return time.Now().Add(time.Duration(seconds) * time.Second)
}

func (r *restClient) signInWithPassword(ctx context.Context, email string, password string) (tokenGrant, error) {
	body, _ := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})

	endpoint := r.identityToolkitURL + "/accounts:signInWithPassword?key=" + url.QueryEscape(r.apiKey)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return tokenGrant{}, fmt.Errorf("identity: sign in: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	var response struct {
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}

	if err := r.do(request, "sign in", &response); err != nil {
		return tokenGrant{}, err
	}

	return tokenGrant{
		UID:          response.LocalID,
		Email:        response.Email,
		IDToken:      response.IDToken,
		RefreshToken: response.RefreshToken,
		Expiry:       expiryFrom(response.ExpiresIn),
	}, nil
}

func (r *restClient) refresh(ctx context.Context, refreshToken string) (tokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	endpoint := r.secureTokenURL + "/token?key=" + url.QueryEscape(r.apiKey)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenGrant{}, fmt.Errorf("identity: refresh: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var response struct {
		UserID       string `json:"user_id"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}

	if err := r.do(request, "refresh", &response); err != nil {
		return tokenGrant{}, err
	}

	return tokenGrant{
		UID:          response.UserID,
		IDToken:      response.IDToken,
		RefreshToken: response.RefreshToken,
		Expiry:       expiryFrom(response.ExpiresIn),
	}, nil
}
