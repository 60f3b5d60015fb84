package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/telemetry"
	"github.com/jdeweedata/circletel-sub016/internal/utils"
)

// Remote queries a provider's feasibility endpoint over HTTP, retrying
// transient failures and mapping the provider-specific payload into
// availability records.
type Remote struct {
	client   *http.Client
	sessions *SessionManager
	sink     telemetry.Reporter
	logger   logger.Logger
	mappers  map[string]MapperFunc
}

func NewRemote(client *http.Client, sessions *SessionManager, sink telemetry.Reporter, log logger.Logger) *Remote {
	if client == nil {
		client = &http.Client{}
	}
	return &Remote{
		client:   client,
		sessions: sessions,
		sink:     sink,
		logger:   log,
		mappers:  BuiltinMappers(),
	}
}

// RegisterMapper adds or replaces a response mapper by name.
func (r *Remote) RegisterMapper(name string, fn MapperFunc) {
	r.mappers[name] = fn
}

// Query performs the provider call. Failures never escape as errors;
// they are folded into the result and reported to the telemetry sink.
func (r *Remote) Query(ctx context.Context, p *domain.Provider, q *domain.CoverageQuery) domain.ProviderCoverageResult {
	start := time.Now()
	reqURL := r.buildURL(p, q)

	services, status, err := r.callWithRetries(ctx, p, reqURL)
	elapsed := time.Since(start)

	result := domain.ProviderCoverageResult{
		ProviderID:   p.ID,
		Success:      err == nil,
		ResponseTime: elapsed,
		Source:       domain.SourceAPI,
		Services:     services,
	}

	rec := telemetry.CallRecord{
		ProviderID: p.ID,
		URL:        reqURL,
		Method:     http.MethodGet,
		StatusCode: status,
		Success:    err == nil,
		Duration:   elapsed,
	}

	if err != nil {
		kind := classify(err)
		result.Error = err.Error()
		result.ErrorKind = kind
		rec.Error = err.Error()
		r.logger.Warn("remote provider call failed",
			logger.String("provider", p.ID),
			logger.String("kind", string(kind)),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
	}

	if r.sink != nil {
		r.sink.Report(rec)
	}
	return result
}

func (r *Remote) buildURL(p *domain.Provider, q *domain.CoverageQuery) string {
	base := strings.TrimRight(p.Remote.BaseURL, "/")
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Latitude, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(q.Longitude, 'f', 6, 64))
	if types := requestedTypes(p, q); len(types) > 0 {
		params.Set("services", strings.Join(types, ","))
	}
	if q.IncludeSignal {
		params.Set("signal", "true")
	}
	return base + "/coverage?" + params.Encode()
}

// callWithRetries runs the attempt loop: transient failures (network
// errors, 5xx, timeout) retry with linear backoff; everything else fails
// immediately.
func (r *Remote) callWithRetries(ctx context.Context, p *domain.Provider, reqURL string) ([]domain.ServiceAvailability, int, error) {
	attempts := p.Remote.RetryAttempts + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := p.Remote.RetryDelay * time.Duration(attempt-1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, lastStatus, &domain.ProviderError{ProviderID: p.ID, Kind: domain.ErrKindTimeout, Err: ctx.Err()}
			case <-timer.C:
			}
		}

		services, status, err := r.callOnce(ctx, p, reqURL)
		lastStatus = status
		if err == nil {
			return services, status, nil
		}
		lastErr = err

		if !transient(err) {
			return nil, status, err
		}
		r.logger.Debug("transient provider failure, retrying",
			logger.String("provider", p.ID),
			logger.Int("attempt", attempt),
			logger.Error(err))
	}

	return nil, lastStatus, lastErr
}

func (r *Remote) callOnce(ctx context.Context, p *domain.Provider, reqURL string) ([]domain.ServiceAvailability, int, error) {
	timeout := p.Remote.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, &domain.ProviderError{ProviderID: p.ID, Kind: domain.ErrKindConfig, Err: err}
	}
	if err := r.applyAuth(callCtx, req, p); err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		kind := domain.ErrKindNetwork
		if callCtx.Err() != nil {
			kind = domain.ErrKindTimeout
		}
		return nil, 0, &domain.ProviderError{ProviderID: p.ID, Kind: kind, Err: err}
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, &domain.ProviderError{ProviderID: p.ID, Kind: domain.ErrKindNetwork, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, &domain.ProviderError{
			ProviderID: p.ID, Kind: domain.ErrKindAuth,
			Err: fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, &domain.ProviderError{
			ProviderID: p.ID, Kind: domain.ErrKindRateLimited,
			Err: fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	default:
		return nil, resp.StatusCode, &domain.ProviderError{
			ProviderID: p.ID, Kind: domain.ErrKindNetwork,
			Err: fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}

	mapper := r.mappers[p.Remote.Mapping]
	if mapper == nil {
		return nil, resp.StatusCode, &domain.ProviderError{
			ProviderID: p.ID, Kind: domain.ErrKindConfig,
			Err: fmt.Errorf("unknown response mapping %q", p.Remote.Mapping),
		}
	}
	services, err := mapper(p.ID, body)
	if err != nil {
		return nil, resp.StatusCode, &domain.ProviderError{ProviderID: p.ID, Kind: domain.ErrKindNetwork, Err: err}
	}
	return services, resp.StatusCode, nil
}

func (r *Remote) applyAuth(ctx context.Context, req *http.Request, p *domain.Provider) error {
	switch p.Remote.Auth {
	case domain.AuthNone, "":
	case domain.AuthAPIKey:
		header := p.Remote.APIKeyHeader
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, p.Remote.APIKey)
	case domain.AuthBearer, domain.AuthOAuth:
		req.Header.Set("Authorization", "Bearer "+p.Remote.BearerToken)
	case domain.AuthSession:
		if r.sessions == nil {
			return &domain.ProviderError{
				ProviderID: p.ID, Kind: domain.ErrKindConfig,
				Err: errors.New("session auth configured without a session manager"),
			}
		}
		ticket, err := r.sessions.TicketFor(ctx, p)
		if err != nil {
			return err
		}
		req.Header.Set("X-Session-Ticket", ticket)
	}
	return nil
}

// transient reports whether an error should be retried.
func transient(err error) bool {
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr.Kind == domain.ErrKindNetwork || perr.Kind == domain.ErrKindTimeout
	}
	return false
}

// classify extracts the failure kind for the result record.
func classify(err error) domain.ProviderErrorKind {
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrKindTimeout
	}
	return domain.ErrKindNetwork
}
