package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/jdeweedata/circletel-sub016/internal/httpserver/deps"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
)

func reloadDeps(provider, dataset, session chan struct{}) deps.Deps {
	return deps.Deps{
		Logger:                logger.New("error", false),
		ProviderReloadTrigger: provider,
		DatasetReloadTrigger:  dataset,
		SessionRefreshTrigger: session,
	}
}

func full() chan struct{} {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	return ch
}

func TestReloadTriggerStatus(t *testing.T) {
	tests := []struct {
		name       string
		deps       deps.Deps
		wantStatus int
		wantResp   reloadResponse
	}{
		{
			name:       "all idle",
			deps:       reloadDeps(make(chan struct{}, 1), make(chan struct{}, 1), make(chan struct{}, 1)),
			wantStatus: 202,
			wantResp:   reloadResponse{Providers: true, Datasets: true, Sessions: true},
		},
		{
			name:       "only session sweep idle",
			deps:       reloadDeps(full(), full(), make(chan struct{}, 1)),
			wantStatus: 202,
			wantResp:   reloadResponse{Sessions: true},
		},
		{
			name:       "everything in flight",
			deps:       reloadDeps(full(), full(), full()),
			wantStatus: 429,
			wantResp:   reloadResponse{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("POST", "/reload", nil)
			Reload(tt.deps)(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp reloadResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if resp != tt.wantResp {
				t.Errorf("response = %+v, want %+v", resp, tt.wantResp)
			}
		})
	}
}
