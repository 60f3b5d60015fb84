package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

const sampleConfig = `providers:
  - id: octotel
    name: Octotel
    kind: remote
    priority: 1
    service_types: [fibre]
    remote:
      base_url: https://api.octotel.example
      auth: api_key
      api_key: secret
      timeout_ms: 3000
      retry_attempts: 3
      rate_limit_rpm: 60
  - id: vuma
    kind: static
    priority: 2
    service_types: [fibre, 5g]
    static:
      dataset_dir: /data/vuma
      fallback: approximate
  - id: broken
    kind: remote
    priority: 3
    service_types: [lte]
`

func TestLoadAndMapProviders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	file, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	providers, errs := NewMapper().MapProviders(file)

	if len(providers) != 2 {
		t.Fatalf("MapProviders() returned %d valid providers, want 2", len(providers))
	}
	if len(errs) != 1 {
		t.Fatalf("MapProviders() returned %d errors, want 1 (broken provider)", len(errs))
	}

	octotel := providers[0]
	if octotel.ID != "octotel" || octotel.Kind != domain.KindRemote {
		t.Errorf("first provider = %s/%s, want octotel/remote", octotel.ID, octotel.Kind)
	}
	if octotel.Remote.RateLimitRPM != 60 {
		t.Errorf("octotel rate limit = %d, want 60", octotel.Remote.RateLimitRPM)
	}
	if octotel.Remote.RetryAttempts != 3 {
		t.Errorf("octotel retries = %d, want 3", octotel.Remote.RetryAttempts)
	}

	vuma := providers[1]
	if vuma.Static.Fallback != domain.FallbackApproximate {
		t.Errorf("vuma fallback = %s, want approximate", vuma.Static.Fallback)
	}
	if vuma.Static.MaxFallbackKM != DefaultFallbackKM {
		t.Errorf("vuma fallback distance = %.1f, want default %.1f", vuma.Static.MaxFallbackKM, DefaultFallbackKM)
	}
	if !vuma.Enabled {
		t.Error("enabled should default to true")
	}
}

func TestMapProvidersDuplicateID(t *testing.T) {
	file := &File{Providers: []ProviderProps{
		{ID: "dup", Kind: "static", ServiceTypes: []string{"fibre"}, Static: &StaticProps{DatasetDir: "/d"}},
		{ID: "dup", Kind: "static", ServiceTypes: []string{"fibre"}, Static: &StaticProps{DatasetDir: "/d"}},
	}}

	providers, errs := NewMapper().MapProviders(file)
	if len(providers) != 1 {
		t.Errorf("MapProviders() kept %d providers, want 1", len(providers))
	}
	if len(errs) != 1 {
		t.Errorf("MapProviders() returned %d errors, want 1", len(errs))
	}
}
