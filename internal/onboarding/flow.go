package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gosimple/slug"
	"github.com/keepvault/onboard/internal/api"
	"github.com/keepvault/onboard/internal/logger"
	"github.com/keepvault/onboard/internal/wizard"
	"github.com/rs/xid"
)

// WizardID namespaces persisted onboarding sessions.
const WizardID = "backup-onboarding"

// Step ids in order.
const (
	StepPlatform  = "platform"
	StepConnect   = "connect"
	StepSources   = "sources"
	StepConfigure = "configure"
	StepReview    = "review"
)

// Data keys.
const (
	KeySessionID         = "session_id"
	KeyPlatform          = "platform"
	KeyOAuthState        = "oauth_state"
	KeyAuthURL           = "auth_url"
	KeyAuthCode          = "auth_code"
	KeyAccessToken       = "access_token"
	KeyRefreshToken      = "refresh_token"
	KeyConnectedPlatform = "connected_platform"
	KeyAvailableSources  = "available_sources"
	KeySelectedSources   = "data_source_ids"
	KeyName              = "name"
	KeySchedule          = "schedule"
	KeyRetentionDays     = "retention_days"
	KeyEncrypted         = "encrypted"
)

// Schedules accepted by the API.
var Schedules = []string{"daily", "weekly", "hourly"}

const (
	defaultSchedule      = "daily"
	defaultRetentionDays = 30
	maxRetentionDays     = 3650
)

// SourceAPI is the part of the backup API the flow calls.
type SourceAPI interface {
	ListDataSources(ctx context.Context, platform, accessToken string) ([]api.DataSource, error)
	CreateSource(ctx context.Context, req api.CreateSourceRequest, idempotencyKey string) (*api.Source, error)
}

// Flow builds the onboarding steps around its collaborators and remembers
// the source created on completion.
type Flow struct {
	api  SourceAPI
	auth Authenticator

	mu      sync.Mutex
	created *api.Source
}

// NewFlow returns a flow using client for API calls and auth for OAuth.
func NewFlow(client SourceAPI, auth Authenticator) *Flow {
	return &Flow{api: client, auth: auth}
}

// InitialData seeds a new session. The session id doubles as the idempotency
// key for source creation, so a resumed session retries with the same key.
func InitialData() wizard.Data {
	return wizard.Data{KeySessionID: xid.New().String()}
}

// Definition returns the onboarding wizard definition.
func (f *Flow) Definition(opts ...wizard.DefinitionOption) (*wizard.Definition, error) {
	return f.DefinitionFor(f.Steps(), opts...)
}

// DefinitionFor is Definition over steps, normally Steps() with extra hooks
// attached.
func (f *Flow) DefinitionFor(steps []wizard.Step, opts ...wizard.DefinitionOption) (*wizard.Definition, error) {
	opts = append([]wizard.DefinitionOption{wizard.OnComplete(f.complete)}, opts...)
	return wizard.NewDefinition(WizardID, steps, opts...)
}

// SessionID returns the session id stored in d.
func SessionID(d wizard.Data) string {
	return d.String(KeySessionID)
}

// Created returns the source created by a successful completion, or nil.
func (f *Flow) Created() *api.Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// Steps returns the five onboarding steps.
func (f *Flow) Steps() []wizard.Step {
	return []wizard.Step{
		{
			ID:          StepPlatform,
			Title:       "Platform",
			Description: "Choose the platform to back up",
			Validate:    validatePlatform,
		},
		{
			ID:          StepConnect,
			Title:       "Connect",
			Description: "Authorize KeepVault to read your data",
			Validate:    validateConnect,
			OnEnter:     f.enterConnect,
			OnExit:      f.exitConnect,
		},
		{
			ID:          StepSources,
			Title:       "Data sources",
			Description: "Pick what to include in the backup",
			Validate:    validateSources,
			OnEnter:     f.enterSources,
		},
		{
			ID:          StepConfigure,
			Title:       "Configure",
			Description: "Name, schedule and retention",
			Validate:    validateConfigure,
			OnEnter:     enterConfigure,
		},
		{
			ID:          StepReview,
			Title:       "Review",
			Description: "Confirm and create the backup source",
		},
	}
}

func validatePlatform(d wizard.Data) error {
	if _, ok := PlatformByID(d.String(KeyPlatform)); !ok {
		return errors.New("Choose a platform to back up")
	}
	return nil
}

func connected(d wizard.Data) bool {
	return d.String(KeyAccessToken) != "" && d.String(KeyConnectedPlatform) == d.String(KeyPlatform)
}

func validateConnect(d wizard.Data) error {
	if strings.TrimSpace(d.String(KeyAuthCode)) == "" && !connected(d) {
		return errors.New("Paste the authorization code from your browser")
	}
	return nil
}

func (f *Flow) enterConnect(_ context.Context, d wizard.Data) error {
	platform := d.String(KeyPlatform)
	if d.String(KeyOAuthState) == "" {
		d[KeyOAuthState] = xid.New().String()
	}
	url, err := f.auth.AuthCodeURL(platform, d.String(KeyOAuthState))
	if err != nil {
		return err
	}
	d[KeyAuthURL] = url
	return nil
}

func (f *Flow) exitConnect(ctx context.Context, d wizard.Data) error {
	code := strings.TrimSpace(d.String(KeyAuthCode))
	if code == "" {
		// Leaving backwards, or already connected
		return nil
	}

	platform := d.String(KeyPlatform)
	tok, err := f.auth.Exchange(ctx, platform, code)
	if err != nil {
		return err
	}
	logger.Info("Connected %s", platform)
	d[KeyAccessToken] = tok.AccessToken
	d[KeyRefreshToken] = tok.RefreshToken
	d[KeyConnectedPlatform] = platform
	// Codes are single use
	d[KeyAuthCode] = ""
	return nil
}

func (f *Flow) enterSources(ctx context.Context, d wizard.Data) error {
	if !connected(d) {
		return errors.New("Connect your account before choosing data sources")
	}
	sources, err := f.api.ListDataSources(ctx, d.String(KeyPlatform), d.String(KeyAccessToken))
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return errors.New("The connection expired. Go back and reconnect your account")
		}
		return fmt.Errorf("Could not load data sources: %w", err)
	}
	if len(sources) == 0 {
		return errors.New("No data sources found on this account")
	}
	d[KeyAvailableSources] = sources

	// Drop selections that no longer exist
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	var kept []string
	for _, id := range d.Strings(KeySelectedSources) {
		if slices.Contains(ids, id) {
			kept = append(kept, id)
		}
	}
	d[KeySelectedSources] = kept
	return nil
}

func validateSources(d wizard.Data) error {
	if len(d.Strings(KeySelectedSources)) == 0 {
		return errors.New("Select at least one data source")
	}
	return nil
}

func enterConfigure(_ context.Context, d wizard.Data) error {
	if d.String(KeyName) == "" {
		d[KeyName] = DefaultName(d.String(KeyPlatform))
	}
	if d.String(KeySchedule) == "" {
		d[KeySchedule] = defaultSchedule
	}
	if _, ok := d.Int(KeyRetentionDays); !ok {
		d[KeyRetentionDays] = defaultRetentionDays
	}
	if _, ok := d[KeyEncrypted]; !ok {
		d[KeyEncrypted] = true
	}
	return nil
}

func validateConfigure(d wizard.Data) error {
	if strings.TrimSpace(d.String(KeyName)) == "" {
		return errors.New("Name your backup source")
	}
	if !slices.Contains(Schedules, d.String(KeySchedule)) {
		return fmt.Errorf("Schedule must be one of %s", strings.Join(Schedules, ", "))
	}
	days, ok := d.Int(KeyRetentionDays)
	if !ok || days < 1 || days > maxRetentionDays {
		return fmt.Errorf("Retention must be between 1 and %d days", maxRetentionDays)
	}
	return nil
}

func (f *Flow) complete(ctx context.Context, d wizard.Data) error {
	days, _ := d.Int(KeyRetentionDays)
	req := api.CreateSourceRequest{
		Name:          strings.TrimSpace(d.String(KeyName)),
		Platform:      d.String(KeyPlatform),
		AccessToken:   d.String(KeyAccessToken),
		RefreshToken:  d.String(KeyRefreshToken),
		DataSourceIDs: d.Strings(KeySelectedSources),
		Schedule:      d.String(KeySchedule),
		RetentionDays: days,
		Encrypted:     d.Bool(KeyEncrypted),
	}

	src, err := f.api.CreateSource(ctx, req, IdempotencyKey(d))
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return errors.New("KeepVault rejected the API token. Check api_token in your config")
		}
		return err
	}

	f.mu.Lock()
	f.created = src
	f.mu.Unlock()
	return nil
}

// IdempotencyKey derives the source-creation key from the session id.
func IdempotencyKey(d wizard.Data) string {
	id := SessionID(d)
	if id == "" {
		return ""
	}
	return "onboard-" + id
}

// DefaultName suggests a source name for a platform, e.g. "github-backup".
func DefaultName(platformID string) string {
	name := platformID
	if p, ok := PlatformByID(platformID); ok {
		name = p.Name
	}
	return slug.Make(name + " backup")
}

// AvailableSources returns the data sources listed when the sources step was
// entered. Values restored from a store come back as generic JSON and are
// decoded again.
func AvailableSources(d wizard.Data) []api.DataSource {
	switch v := d[KeyAvailableSources].(type) {
	case nil:
		return nil
	case []api.DataSource:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var out []api.DataSource
		if err := json.Unmarshal(raw, &out); err != nil {
			logger.Warn("Discarding malformed %s: %v", KeyAvailableSources, err)
			return nil
		}
		return out
	}
}
