// Package rpc registers the CatalogSearch methods on the JSON-over-TCP RPC
// server used by the CRUD layer.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/proto"
)

// Register mounts every CatalogSearch method on s.
func Register(s *grpc.Server, svc *service.Service) {
	s.Register(proto.MethodSearch, handle(svc.Search))
	s.Register(proto.MethodSuggest, handle(svc.Suggest))
	s.Register(proto.MethodStats, handle(func(ctx context.Context, _ proto.StatsRequest) (*proto.StatsResponse, error) {
		return svc.Stats(ctx), nil
	}))
	s.Register(proto.MethodReindex, handle(svc.Reindex))
	s.Register(proto.MethodNotify, handle(func(ctx context.Context, req proto.NotifyRequest) (*proto.JobAck, error) {
		return svc.Notify(ctx, req, "rpc")
	}))
	s.Register(proto.MethodJob, handle(svc.Job))
	s.Register(proto.MethodJobs, handle(svc.Jobs))
}

// handle decodes the params into Req before calling fn. Missing params
// decode as the zero request.
func handle[Req, Resp any](fn func(context.Context, Req) (Resp, error)) grpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req Req
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid params: %v", err)
			}
		}
		return fn(ctx, req)
	}
}
