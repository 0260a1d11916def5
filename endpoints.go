package actrec

import (
	"context"

	"github.com/hazyhaar/actrec/internal/kit"
)

type sessionIDRequest struct {
	ID string `json:"id"`
}

type listResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// endpoints are the transport-neutral control operations shared by the
// HTTP and MCP surfaces.
type endpoints struct {
	start, stop, get, list kit.Endpoint
}

func (s *Service) endpoints() endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(s.logger, name), kit.Recover())(ep)
	}
	return endpoints{
		start: wrap("start", func(ctx context.Context, req any) (any, error) {
			return s.StartSession(ctx, *req.(*StartRequest))
		}),
		stop: wrap("stop", func(ctx context.Context, req any) (any, error) {
			return s.StopSession(ctx, req.(*sessionIDRequest).ID)
		}),
		get: wrap("get", func(ctx context.Context, req any) (any, error) {
			return s.GetSession(ctx, req.(*sessionIDRequest).ID)
		}),
		list: wrap("list", func(ctx context.Context, _ any) (any, error) {
			sessions, err := s.ListSessions(ctx)
			if err != nil {
				return nil, err
			}
			return listResponse{Sessions: sessions}, nil
		}),
	}
}
