package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		check   func(t *testing.T, q *domain.CoverageQuery)
	}{
		{
			name: "full query",
			url:  "/resolve?lat=-26.2&lon=28.04&services=fibre,5g&providers=fibreco&signal=true",
			check: func(t *testing.T, q *domain.CoverageQuery) {
				if q.Latitude != -26.2 || q.Longitude != 28.04 {
					t.Errorf("coordinates = %v,%v", q.Latitude, q.Longitude)
				}
				if len(q.ServiceTypes) != 2 || q.ServiceTypes[0] != "fibre" {
					t.Errorf("services = %v", q.ServiceTypes)
				}
				if len(q.Providers) != 1 || q.Providers[0] != "fibreco" {
					t.Errorf("providers = %v", q.Providers)
				}
				if !q.IncludeSignal {
					t.Error("signal flag not parsed")
				}
			},
		},
		{
			name: "coordinates only",
			url:  "/resolve?lat=-26.2&lon=28.04",
			check: func(t *testing.T, q *domain.CoverageQuery) {
				if len(q.ServiceTypes) != 0 || len(q.Providers) != 0 {
					t.Errorf("filters should be empty, got %v %v", q.ServiceTypes, q.Providers)
				}
			},
		},
		{
			name:    "missing lat",
			url:     "/resolve?lon=28.04",
			wantErr: true,
		},
		{
			name:    "non-numeric lon",
			url:     "/resolve?lat=-26.2&lon=east",
			wantErr: true,
		},
		{
			name:    "bad signal flag",
			url:     "/resolve?lat=-26.2&lon=28.04&signal=maybe",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			q, err := parseQuery(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseQuery() should have failed")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseQuery() error: %v", err)
			}
			tt.check(t, q)
		})
	}
}

func TestWriteResolveErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid query",
			err:        &domain.InvalidQueryError{Reason: "latitude out of range"},
			wantStatus: 400,
		},
		{
			name:       "no coverage",
			err:        domain.ErrNoCoverageFound,
			wantStatus: 404,
		},
		{
			name: "all providers failed",
			err: &domain.AllProvidersFailedError{Causes: []*domain.ProviderError{
				{ProviderID: "a", Kind: domain.ErrKindTimeout, Err: errors.New("deadline")},
			}},
			wantStatus: 502,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeResolveError(w, tt.err)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if body.Error == "" {
				t.Error("error message missing from body")
			}
		})
	}
}

func TestWriteResolveErrorKeepsProviderDetail(t *testing.T) {
	w := httptest.NewRecorder()
	writeResolveError(w, &domain.AllProvidersFailedError{Causes: []*domain.ProviderError{
		{ProviderID: "fibreco", Kind: domain.ErrKindAuth, Err: errors.New("401")},
		{ProviderID: "lteco", Kind: domain.ErrKindRateLimited, Err: errors.New("bucket empty")},
	}})

	var body errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Providers) != 2 {
		t.Fatalf("got %d provider causes, want 2", len(body.Providers))
	}
	if body.Providers[0].ProviderID != "fibreco" || body.Providers[0].Kind != "auth" {
		t.Errorf("first cause = %+v", body.Providers[0])
	}
}
