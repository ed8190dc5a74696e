// Package testfixtures provides mock implementations and test utilities for TUI testing.
//
// This file contains mock implementations for the onboarding collaborators:
//   - MockSourceAPI: Mock implementation of onboarding.SourceAPI
//   - MockAuthenticator: Mock implementation of onboarding.Authenticator
//
// All mocks are thread-safe and provide verification methods for assertions in tests.
//
// Example usage:
//
//	func TestMyStep(t *testing.T) {
//	    api := testfixtures.NewMockSourceAPI()
//	    api.ListError = errors.New("boom")
//
//	    flow := onboarding.NewFlow(api, testfixtures.NewMockAuthenticator())
//	    // Use flow in your test...
//	    require.Equal(t, 1, api.ListCalls())
//	}
package testfixtures

import (
	"context"
	"fmt"
	"sync"

	"github.com/keepvault/onboard/internal/api"
	"golang.org/x/oauth2"
)

// MockSourceAPI is a mock implementation of onboarding.SourceAPI for testing.
type MockSourceAPI struct {
	mu sync.RWMutex

	// Sources to return from ListDataSources
	Sources []api.DataSource
	// Error to return from ListDataSources
	ListError error
	// Error to return from CreateSource
	CreateError error

	listCalls int
	created   []api.CreateSourceRequest
	keys      []string
}

// NewMockSourceAPI creates a mock listing DataSources().
func NewMockSourceAPI() *MockSourceAPI {
	return &MockSourceAPI{Sources: DataSources()}
}

// ListDataSources implements onboarding.SourceAPI.
func (m *MockSourceAPI) ListDataSources(ctx context.Context, platform, accessToken string) ([]api.DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}
	return append([]api.DataSource(nil), m.Sources...), nil
}

// CreateSource implements onboarding.SourceAPI.
func (m *MockSourceAPI) CreateSource(ctx context.Context, req api.CreateSourceRequest, idempotencyKey string) (*api.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, req)
	m.keys = append(m.keys, idempotencyKey)
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	return CreatedSource(req), nil
}

// ListCalls returns how many times ListDataSources was called.
func (m *MockSourceAPI) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

// Created returns the create requests received, in order.
func (m *MockSourceAPI) Created() []api.CreateSourceRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]api.CreateSourceRequest(nil), m.created...)
}

// IdempotencyKeys returns the keys sent with each create request.
func (m *MockSourceAPI) IdempotencyKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.keys...)
}

// MockAuthenticator is a mock implementation of onboarding.Authenticator.
type MockAuthenticator struct {
	mu sync.RWMutex

	// Error to return from Exchange
	ExchangeError error

	exchanged []string
}

// NewMockAuthenticator creates a mock that accepts any code.
func NewMockAuthenticator() *MockAuthenticator {
	return &MockAuthenticator{}
}

// AuthCodeURL implements onboarding.Authenticator.
func (m *MockAuthenticator) AuthCodeURL(platformID, state string) (string, error) {
	return fmt.Sprintf("https://auth.example.com/%s?state=%s", platformID, state), nil
}

// Exchange implements onboarding.Authenticator.
func (m *MockAuthenticator) Exchange(ctx context.Context, platformID, code string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanged = append(m.exchanged, code)
	if m.ExchangeError != nil {
		return nil, m.ExchangeError
	}
	return &oauth2.Token{AccessToken: FixedAccessToken, RefreshToken: "refresh"}, nil
}

// Exchanged returns the codes exchanged, in order.
func (m *MockAuthenticator) Exchanged() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.exchanged...)
}
