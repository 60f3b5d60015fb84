package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/telemetry"
)

type captureSink struct {
	mu      sync.Mutex
	records []telemetry.CallRecord
}

func (c *captureSink) Report(rec telemetry.CallRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func (c *captureSink) last() (telemetry.CallRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) == 0 {
		return telemetry.CallRecord{}, false
	}
	return c.records[len(c.records)-1], true
}

func remoteProvider(baseURL string) *domain.Provider {
	return &domain.Provider{
		ID: "octotel", Kind: domain.KindRemote, Enabled: true, Priority: 1,
		ServiceTypes: []string{"fibre"},
		Remote: &domain.RemoteConfig{
			BaseURL:       baseURL,
			Auth:          domain.AuthAPIKey,
			APIKey:        "secret",
			Timeout:       2 * time.Second,
			RetryAttempts: 2,
			RetryDelay:    10 * time.Millisecond,
		},
	}
}

func TestRemoteQuerySuccess(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"services":[{"type":"Fibre","available":true,"signal":0.82,"max_speed_mbps":1000}]}`))
	}))
	defer srv.Close()

	sink := &captureSink{}
	remote := NewRemote(srv.Client(), nil, sink, logger.New("error", false))
	query := &domain.CoverageQuery{Latitude: -26.2, Longitude: 28.0}

	result := remote.Query(context.Background(), remoteProvider(srv.URL), query)

	if !result.Success {
		t.Fatalf("Query() failed: %s", result.Error)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q, want secret", gotKey)
	}
	if len(result.Services) != 1 {
		t.Fatalf("Query() mapped %d services, want 1", len(result.Services))
	}
	svc := result.Services[0]
	if svc.ServiceType != "fibre" || !svc.Available || svc.Source != domain.SourceAPI {
		t.Errorf("unexpected mapped service: %+v", svc)
	}
	if svc.Signal == nil || *svc.Signal != 0.82 {
		t.Error("signal should be carried through the mapper")
	}

	rec, ok := sink.last()
	if !ok || !rec.Success {
		t.Error("successful call should be reported to the telemetry sink")
	}
}

func TestRemoteQueryRetriesTransient(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"services":[{"type":"fibre","available":true}]}`))
	}))
	defer srv.Close()

	remote := NewRemote(srv.Client(), nil, nil, logger.New("error", false))
	result := remote.Query(context.Background(), remoteProvider(srv.URL), &domain.CoverageQuery{Latitude: 1, Longitude: 1})

	if !result.Success {
		t.Fatalf("Query() should succeed after retries, got: %s", result.Error)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3 (two 5xx then success)", calls)
	}
}

func TestRemoteQueryAuthFailureNoRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sink := &captureSink{}
	remote := NewRemote(srv.Client(), nil, sink, logger.New("error", false))
	result := remote.Query(context.Background(), remoteProvider(srv.URL), &domain.CoverageQuery{Latitude: 1, Longitude: 1})

	if result.Success {
		t.Fatal("Query() should fail on 401")
	}
	if result.ErrorKind != domain.ErrKindAuth {
		t.Errorf("error kind = %s, want auth", result.ErrorKind)
	}
	if calls != 1 {
		t.Errorf("auth failures must not retry, server saw %d calls", calls)
	}

	rec, ok := sink.last()
	if !ok || rec.Success {
		t.Error("failed call should be reported to the telemetry sink as failure")
	}
}

func TestRemoteQueryTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	p := remoteProvider(srv.URL)
	p.Remote.Timeout = 50 * time.Millisecond
	p.Remote.RetryAttempts = 0

	remote := NewRemote(srv.Client(), nil, nil, logger.New("error", false))
	result := remote.Query(context.Background(), p, &domain.CoverageQuery{Latitude: 1, Longitude: 1})

	if result.Success {
		t.Fatal("Query() should time out")
	}
	if result.ErrorKind != domain.ErrKindTimeout {
		t.Errorf("error kind = %s, want timeout", result.ErrorKind)
	}
}

func TestRemoteQueryFlatMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"lte":{"feasible":true,"quality":0.6},"fibre":{"feasible":false}}`))
	}))
	defer srv.Close()

	p := remoteProvider(srv.URL)
	p.Remote.Mapping = "flat"
	p.ServiceTypes = []string{"lte", "fibre"}

	remote := NewRemote(srv.Client(), nil, nil, logger.New("error", false))
	result := remote.Query(context.Background(), p, &domain.CoverageQuery{Latitude: 1, Longitude: 1})

	if !result.Success {
		t.Fatalf("Query() failed: %s", result.Error)
	}
	if len(result.Services) != 2 {
		t.Fatalf("flat mapper produced %d services, want 2", len(result.Services))
	}
	for _, svc := range result.Services {
		if svc.ServiceType == "lte" && !svc.Available {
			t.Error("lte should be available")
		}
		if svc.ServiceType == "fibre" && svc.Available {
			t.Error("fibre should be unavailable")
		}
	}
}
