package deps

import (
	"net/http"
	"time"

	"github.com/jdeweedata/circletel-sub016/internal/gateway"
	"github.com/jdeweedata/circletel-sub016/internal/health"
	"github.com/jdeweedata/circletel-sub016/internal/logger"
	"github.com/jdeweedata/circletel-sub016/internal/registry"
	"github.com/jdeweedata/circletel-sub016/internal/resolver"
	redisstore "github.com/jdeweedata/circletel-sub016/internal/store/redis"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	AllowedHosts []string // Host headers allowed to access the server
	AllowedCIDRS []string // IPs allowed to access operational endpoints
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Registry     *registry.Registry // In-memory provider registry
	Tracker      *health.Tracker    // Rolling provider health
	Orchestrator *resolver.Orchestrator
	Sessions     *gateway.SessionManager
	Store        *redisstore.Store // Result cache and call log
	Metrics      http.Handler      // Prometheus exposition handler

	ProviderReloadTrigger chan struct{} // Channel to trigger manual provider reload
	DatasetReloadTrigger  chan struct{} // Channel to trigger manual dataset rescan
	SessionRefreshTrigger chan struct{} // Channel to trigger a session refresh sweep

	Ready func() bool // readiness gate, true once providers are loaded
}
