package gateway

import (
	"context"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

// Gateway is the uniform capability over both provider kinds. Query
// always returns a result; failures are carried inside it so the
// orchestrator can merge partial outcomes.
type Gateway interface {
	Query(ctx context.Context, p *domain.Provider, q *domain.CoverageQuery) domain.ProviderCoverageResult
}

// Router dispatches to the remote or static implementation by kind.
type Router struct {
	remote *Remote
	static *Static
}

func NewRouter(remote *Remote, static *Static) *Router {
	return &Router{remote: remote, static: static}
}

func (r *Router) Query(ctx context.Context, p *domain.Provider, q *domain.CoverageQuery) domain.ProviderCoverageResult {
	switch p.Kind {
	case domain.KindRemote:
		return r.remote.Query(ctx, p, q)
	case domain.KindStatic:
		return r.static.Query(ctx, p, q)
	default:
		return domain.ProviderCoverageResult{
			ProviderID: p.ID,
			Success:    false,
			Error:      "unknown provider kind: " + string(p.Kind),
			ErrorKind:  domain.ErrKindConfig,
		}
	}
}

// requestedTypes intersects the query's service-type filter with the
// provider's supported set.
func requestedTypes(p *domain.Provider, q *domain.CoverageQuery) []string {
	if len(q.ServiceTypes) == 0 {
		return p.ServiceTypes
	}
	var types []string
	for _, st := range q.ServiceTypes {
		if p.SupportsService(st) {
			types = append(types, st)
		}
	}
	return types
}
