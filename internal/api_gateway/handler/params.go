package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/emotion-market/point-ledger/internal/api_gateway/middleware"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/platform/auth"
)

// caller returns the authenticated principal or answers 401.
func caller(c *gin.Context) (auth.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		RespondUnauthorized(c, "")
		return auth.Principal{}, false
	}
	return principal, true
}

// uuidParam parses the path parameter name or answers 400.
func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondBadRequest(c, "Invalid "+label)
		return uuid.Nil, false
	}
	return id, true
}

func (p PaginationParams) page() shared.Page {
	return shared.NewPage(p.Page, p.PerPage)
}
