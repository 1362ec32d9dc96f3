package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

const secureTokenURL = "https://securetoken.googleapis.com/v1/token"

// ErrReauthRequired means the session could not be refreshed and the user
// has to sign in again.
var ErrReauthRequired = errors.New("client: re-authentication required")

// Session supplies bearer tokens. Refresh is called at most once per API
// call, after the API rejected the current token.
type Session interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// withSession attaches the current token to call and, on a 401, refreshes
// the session exactly once before trying again.
func (c *Client) withSession(ctx context.Context, call func(token string) error) error {
	token, err := c.session.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}

	err = call(token)
	if !unauthorized(err) {
		return err
	}

	if err := c.session.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}
	if token, err = c.session.Token(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}

	err = call(token)
	if unauthorized(err) {
		return fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}
	return err
}

func unauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// FirebaseSession exchanges a Firebase refresh token for ID tokens through
// the Google secure token service.
type FirebaseSession struct {
	config *oauth2.Config
	client *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

func NewFirebaseSession(apiKey, refreshToken string) *FirebaseSession {
	return newFirebaseSession(secureTokenURL+"?key="+apiKey, refreshToken, http.DefaultClient)
}

func newFirebaseSession(tokenURL, refreshToken string, hc *http.Client) *FirebaseSession {
	return &FirebaseSession{
		config: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: hc,
		token:  &oauth2.Token{RefreshToken: refreshToken},
	}
}

// Token returns the cached ID token, refreshing it when expired.
func (s *FirebaseSession) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.token.Valid() {
		if err := s.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return idToken(s.token), nil
}

// Refresh discards the cached ID token and fetches a new one.
func (s *FirebaseSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *FirebaseSession) refreshLocked(ctx context.Context) error {
	if s.token.RefreshToken == "" {
		return errors.New("no refresh token")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	// a token without an access token forces the source to refresh
	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("refresh firebase session: %w", err)
	}
	s.token = tok
	return nil
}

// The secure token service returns the ID token both as id_token and as
// access_token; prefer the explicit field.
func idToken(tok *oauth2.Token) string {
	if id, ok := tok.Extra("id_token").(string); ok && id != "" {
		return id
	}
	return tok.AccessToken
}
