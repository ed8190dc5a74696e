package testfixtures

import (
	"time"

	"github.com/keepvault/onboard/internal/api"
)

// Fixed test values for consistent output
const (
	FixedWizardID    = "test-wizard"
	FixedSessionID   = "cv1test0000000000000"
	FixedAccessToken = "gho_test_token"
	FixedAuthCode    = "4/0test-code"
)

var (
	FixedTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

// DataSources returns a small listing of data sources
func DataSources() []api.DataSource {
	return []api.DataSource{
		{ID: "repo-web", Name: "keepvault/web", Kind: "repository", SizeBytes: 48 << 20},
		{ID: "repo-api", Name: "keepvault/api", Kind: "repository", SizeBytes: 120 << 20},
		{ID: "wiki", Name: "Engineering wiki", Kind: "wiki", SizeBytes: 3 << 20},
	}
}

// CreatedSource returns the source the mock API reports as created
func CreatedSource(req api.CreateSourceRequest) *api.Source {
	return &api.Source{
		ID:            "src_01",
		Name:          req.Name,
		Platform:      req.Platform,
		Schedule:      req.Schedule,
		RetentionDays: req.RetentionDays,
		Encrypted:     req.Encrypted,
		CreatedAt:     FixedTime,
	}
}
