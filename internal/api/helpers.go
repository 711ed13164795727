package api

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sparkapp/spark-server/internal/domain"
)

// authenticateRequest validates the Authorization header and returns
// the user ID.
func (s *Server) authenticateRequest(authHeader string) (string, error) {
	if authHeader == "" {
		return "", huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", huma.Error401Unauthorized("Invalid authorization header format")
	}

	userID, err := s.services.Auth.VerifyToken(parts[1])
	if err != nil {
		return "", huma.Error401Unauthorized("Invalid or expired token")
	}

	return userID, nil
}

// refreshSearchDocument rebuilds a resource's search document after an
// association change. Best effort; search staleness never fails the
// write that caused it.
func (s *Server) refreshSearchDocument(ctx context.Context, ref domain.ResourceRef) {
	if err := s.services.Resource.ReindexResource(ctx, ref); err != nil {
		s.logger.Warn("failed to refresh search document",
			"resource_kind", ref.Kind,
			"resource_id", ref.ID,
			"error", err,
		)
	}
}

// resourceRef builds an owner-scoped reference from path parameters.
// An unknown kind is a 404: the route namespace only contains the three
// resource kinds.
func resourceRef(userID, kind, id string) (domain.ResourceRef, error) {
	k := domain.ResourceKind(kind)
	if !k.Valid() {
		return domain.ResourceRef{}, huma.Error404NotFound("Unknown resource kind " + kind)
	}
	return domain.ResourceRef{ID: id, Kind: k, OwnerID: userID}, nil
}
