package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/utils"
)

// Ticket is an opaque session credential for a ticket-auth provider.
type Ticket struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the ticket is usable, with a small safety margin
// so near-expiry tickets are refreshed ahead of time.
func (t *Ticket) Valid() bool {
	return t != nil && t.Value != "" && time.Until(t.ExpiresAt) > 30*time.Second
}

// SessionManager owns the session tickets of ticket-auth remote
// providers. Refreshes are single-flight: concurrent callers needing a
// fresh ticket share one login exchange. Readers always see either the
// old or the fully refreshed ticket.
type SessionManager struct {
	client *http.Client
	logger logger.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

func NewSessionManager(client *http.Client, log logger.Logger) *SessionManager {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SessionManager{
		client:  client,
		logger:  log,
		tickets: make(map[string]*Ticket),
	}
}

// Current returns the stored ticket for a provider, valid or not.
func (m *SessionManager) Current(providerID string) (*Ticket, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[providerID]
	return t, ok
}

// TicketFor returns a usable ticket, refreshing if the stored one is
// missing or near expiry. On refresh failure a stale-but-unexpired
// ticket is still returned so calls keep working until true expiry.
func (m *SessionManager) TicketFor(ctx context.Context, p *domain.Provider) (string, error) {
	if t, ok := m.Current(p.ID); ok && t.Valid() {
		return t.Value, nil
	}

	t, err := m.Refresh(ctx, p)
	if err != nil {
		if stale, ok := m.Current(p.ID); ok && stale.Value != "" && time.Now().Before(stale.ExpiresAt) {
			m.logger.Warn("session refresh failed, using stale ticket",
				logger.String("provider", p.ID),
				logger.Error(err))
			return stale.Value, nil
		}
		return "", &domain.ProviderError{ProviderID: p.ID, Kind: domain.ErrKindAuth, Err: err}
	}
	return t.Value, nil
}

// Refresh performs the login exchange and atomically swaps the stored
// ticket. Concurrent refreshes for the same provider collapse into one.
func (m *SessionManager) Refresh(ctx context.Context, p *domain.Provider) (*Ticket, error) {
	v, err, _ := m.group.Do(p.ID, func() (interface{}, error) {
		t, err := m.login(ctx, p)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.tickets[p.ID] = t
		m.mu.Unlock()
		m.logger.Info("session ticket refreshed",
			logger.String("provider", p.ID),
			logger.Duration("valid_for", time.Until(t.ExpiresAt)))
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Ticket), nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

func (m *SessionManager) login(ctx context.Context, p *domain.Provider) (*Ticket, error) {
	body, err := json.Marshal(loginRequest{
		Username: p.Remote.Username,
		Password: p.Remote.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Remote.LoginURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	if lr.Ticket == "" {
		return nil, fmt.Errorf("login response missing ticket")
	}

	expiresIn := lr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return &Ticket{
		Value:     lr.Ticket,
		ExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// NeedsRefresh reports whether a provider's ticket should be refreshed
// ahead of expiry. Used by the background refresh loop.
func (m *SessionManager) NeedsRefresh(providerID string, lead time.Duration) bool {
	t, ok := m.Current(providerID)
	if !ok {
		return true
	}
	return time.Until(t.ExpiresAt) < lead
}
