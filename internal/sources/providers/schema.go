package providers

// File is the top-level structure of providers.yaml.
type File struct {
	Providers []ProviderProps `yaml:"providers"`
}

// ProviderProps contains one provider definition as configured by the
// external admin collaborator.
type ProviderProps struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name,omitempty"`
	Enabled      *bool    `yaml:"enabled,omitempty"` // nil defaults to true
	Kind         string   `yaml:"kind"`
	Priority     int      `yaml:"priority"`
	ServiceTypes []string `yaml:"service_types"`

	Remote *RemoteProps `yaml:"remote,omitempty"`
	Static *StaticProps `yaml:"static,omitempty"`
}

type RemoteProps struct {
	BaseURL      string `yaml:"base_url"`
	Auth         string `yaml:"auth,omitempty"`
	APIKey       string `yaml:"api_key,omitempty"`
	APIKeyHeader string `yaml:"api_key_header,omitempty"`
	BearerToken  string `yaml:"bearer_token,omitempty"`
	LoginURL     string `yaml:"login_url,omitempty"`
	Username     string `yaml:"username,omitempty"`
	Password     string `yaml:"password,omitempty"`
	AutoRefresh  *bool  `yaml:"auto_refresh,omitempty"`
	Mapping      string `yaml:"mapping,omitempty"`

	TimeoutMs     int `yaml:"timeout_ms,omitempty"`
	RetryAttempts int `yaml:"retry_attempts,omitempty"`
	RetryDelayMs  int `yaml:"retry_delay_ms,omitempty"`
	RateLimitRPM  int `yaml:"rate_limit_rpm,omitempty"`
}

type StaticProps struct {
	DatasetDir    string  `yaml:"dataset_dir"`
	Fallback      string  `yaml:"fallback,omitempty"`
	MaxFallbackKM float64 `yaml:"max_fallback_km,omitempty"`
}
