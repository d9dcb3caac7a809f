// Package auth drives the browser-based OAuth login flow for providers
// that support it, as a small state machine a CLI or remote caller can
// poll instead of blocking on a single synchronous call: NotStarted ->
// AwaitingInput -> Polling -> Complete|Failed. A flow reaches
// AwaitingInput with an authorization URL to open; it leaves
// AwaitingInput either because a local callback listener captured the
// redirect on its own, or because the caller pasted the code manually
// via SubmitInput.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is a flow's position in the login state machine.
type State string

const (
	StateNotStarted    State = "not_started"
	StateAwaitingInput State = "awaiting_input"
	StatePolling       State = "polling"
	StateComplete      State = "complete"
	StateFailed        State = "failed"
)

// FlowID addresses one in-flight login attempt.
type FlowID string

// Progress is the snapshot a caller polls for. AuthURL is set once,
// when the flow reaches AwaitingInput; Message carries a short
// human-readable status; Err is set only in StateFailed.
type Progress struct {
	FlowID  FlowID `json:"flowId"`
	State   State  `json:"state"`
	AuthURL string `json:"authUrl,omitempty"`
	Message string `json:"message,omitempty"`
	Err     string `json:"error,omitempty"`
}

// flow is one provider login attempt in progress. All field access
// outside of the owning flow's methods goes through Manager's mutex.
type flow struct {
	id       FlowID
	provider string
	pkce     pkceChallenge
	oauth    *providerOAuth
	callback *callbackServer

	mu       sync.Mutex
	progress Progress
}

// Manager tracks in-flight login flows and the store they ultimately
// write tokens to. A single Manager is shared process-wide; flows are
// not scoped to a session, since provider credentials apply across all
// sessions the same way config.Load's provider block does.
type Manager struct {
	store *Store

	mu    sync.Mutex
	flows map[FlowID]*flow
}

// NewManager builds a Manager persisting completed logins to path
// (ordinarily config.GetPaths().AuthPath()).
func NewManager(path string) *Manager {
	return &Manager{store: NewStore(path), flows: make(map[FlowID]*flow)}
}

// StartAuth begins a login attempt for provider, returning its flow ID
// and initial progress. For providers without an OAuth flow it returns
// an error immediately and registers no flow.
func (m *Manager) StartAuth(ctx context.Context, provider string) (FlowID, Progress, error) {
	oauthCfg, ok := providerOAuthConfigs[provider]
	if !ok {
		return "", Progress{}, fmt.Errorf("auth: no OAuth support for provider %q", provider)
	}

	id := FlowID(uuid.NewString())
	pkce, err := generatePKCE()
	if err != nil {
		return "", Progress{}, fmt.Errorf("auth: generate pkce: %w", err)
	}

	po := newProviderOAuth(oauthCfg)
	f := &flow{
		id:       id,
		provider: provider,
		pkce:     pkce,
		oauth:    po,
		progress: Progress{FlowID: id, State: StateNotStarted},
	}

	authURL := po.buildAuthURL(pkce)

	cb, err := startCallbackServer(oauthCfg.CallbackAddr, oauthCfg.CallbackPath, pkce.verifier)
	if err != nil {
		// A local listener is a convenience, not a requirement: the
		// manual-paste path via SubmitInput still works without one.
		f.setProgress(Progress{
			FlowID:  id,
			State:   StateAwaitingInput,
			AuthURL: authURL,
			Message: fmt.Sprintf("open %s, authorize, then paste the resulting code", authURL),
		})
	} else {
		f.callback = cb
		f.setProgress(Progress{
			FlowID:  id,
			State:   StateAwaitingInput,
			AuthURL: authURL,
			Message: fmt.Sprintf("open %s to authorize; waiting for the redirect", authURL),
		})
		go m.awaitCallback(ctx, f)
	}

	m.mu.Lock()
	m.flows[id] = f
	m.mu.Unlock()

	return id, f.currentProgress(), nil
}

// awaitCallback blocks on the flow's callback listener and exchanges
// whatever code it captures, so a flow started with a working listener
// completes without the caller ever calling SubmitInput.
func (m *Manager) awaitCallback(ctx context.Context, f *flow) {
	result, err := f.callback.wait(ctx)
	if err != nil {
		// Cancelled, timed out, or the caller supplied the code
		// manually first; either way SubmitInput owns the outcome now.
		return
	}
	m.exchangeAndComplete(ctx, f, result.code, result.state)
}

// GetAuthProgress returns the current snapshot for flowID.
func (m *Manager) GetAuthProgress(flowID FlowID) (Progress, error) {
	f, err := m.flow(flowID)
	if err != nil {
		return Progress{}, err
	}
	return f.currentProgress(), nil
}

// SubmitInput feeds a manually pasted callback code into flowID,
// mirroring the "paste the code back" path: input may be a bare
// authorization code or a "code#state" pair in the shape a provider's
// redirect page displays it. It returns a non-nil error alongside the
// progress when the flow ends in StateFailed.
func (m *Manager) SubmitInput(ctx context.Context, flowID FlowID, input string) (Progress, error) {
	f, err := m.flow(flowID)
	if err != nil {
		return Progress{}, err
	}

	if f.currentProgress().State != StateAwaitingInput {
		return f.currentProgress(), fmt.Errorf("auth: flow %s is not awaiting input", flowID)
	}

	code, state := parseCallbackInput(input)
	if state == "" {
		state = f.pkce.verifier
	}
	if f.callback != nil {
		f.callback.cancel()
	}

	p := m.exchangeAndComplete(ctx, f, code, state)
	if p.State == StateFailed {
		return p, fmt.Errorf("auth: %s", p.Err)
	}
	return p, nil
}

func (m *Manager) exchangeAndComplete(ctx context.Context, f *flow, code, state string) Progress {
	f.setProgress(Progress{FlowID: f.id, State: StatePolling, Message: "exchanging authorization code for tokens"})

	if state != f.pkce.verifier {
		return m.fail(f, fmt.Errorf("state mismatch: authorization may have been tampered with"))
	}

	tok, err := f.oauth.exchange(ctx, code, f.pkce.verifier)
	if err != nil {
		return m.fail(f, fmt.Errorf("exchange code for tokens: %w", err))
	}

	if err := m.store.SetOAuthTokens(f.provider, Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}); err != nil {
		return m.fail(f, fmt.Errorf("store tokens: %w", err))
	}

	p := Progress{FlowID: f.id, State: StateComplete, Message: fmt.Sprintf("logged in to %s", f.provider)}
	f.setProgress(p)
	return p
}

func (m *Manager) fail(f *flow, err error) Progress {
	p := Progress{FlowID: f.id, State: StateFailed, Err: err.Error()}
	f.setProgress(p)
	return p
}

func (m *Manager) flow(id FlowID) (*flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[id]
	if !ok {
		return nil, fmt.Errorf("auth: unknown flow %s", id)
	}
	return f, nil
}

func (f *flow) setProgress(p Progress) {
	f.mu.Lock()
	f.progress = p
	f.mu.Unlock()
}

func (f *flow) currentProgress() Progress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress
}
