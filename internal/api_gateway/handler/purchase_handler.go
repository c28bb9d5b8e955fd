package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/emotion-market/point-ledger/internal/api_gateway/middleware"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
)

// PurchaseHandler serves the purchase workflow.
type PurchaseHandler struct {
	purchaseService service.PurchaseService
	logger          *slog.Logger
}

func NewPurchaseHandler(logger *slog.Logger, purchaseService service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		logger:          logger,
	}
}

// Create buys a catalog item for the caller.
func (h *PurchaseHandler) Create(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.purchaseService.Purchase(c.Request.Context(), &service.PurchaseRequest{
		AccountID:     principal.AccountID,
		ItemID:        uuid.MustParse(req.ItemID),
		Note:          req.Note,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, PurchaseResultResponse{
		Purchase: mapPurchaseToResponse(result.Purchase),
		Balance:  result.Balance,
	})
}

// Get returns one of the caller's purchases with its status as of now.
func (h *PurchaseHandler) Get(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "purchase ID")
	if !ok {
		return
	}

	p, err := h.purchaseService.Get(c.Request.Context(), principal.AccountID, id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPurchaseToResponse(p))
}

// List pages through the caller's purchases. active=true hides lapsed and refunded ones.
func (h *PurchaseHandler) List(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var params ListPurchasesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	page := params.page()
	purchases, total, err := h.purchaseService.ListByAccount(c.Request.Context(), principal.AccountID, params.ActiveOnly, page)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapPurchases(purchases), page.Number, page.Size, int(total))
}

// Access opens the purchased content. Lapsed purchases answer 403.
func (h *PurchaseHandler) Access(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "purchase ID")
	if !ok {
		return
	}

	p, err := h.purchaseService.Access(c.Request.Context(), principal.AccountID, id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPurchaseToResponse(p))
}

// Review rates one of the caller's purchases.
func (h *PurchaseHandler) Review(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "purchase ID")
	if !ok {
		return
	}

	var req ReviewPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p, err := h.purchaseService.Review(c.Request.Context(), &service.ReviewPurchaseRequest{
		AccountID:  principal.AccountID,
		PurchaseID: id,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPurchaseToResponse(p))
}

// Expiring lists the caller's active purchases that lapse within the next hours.
func (h *PurchaseHandler) Expiring(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var params ExpiringParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "hours must be between 1 and 168")
		return
	}

	purchases, err := h.purchaseService.ExpiringWithin(c.Request.Context(), principal.AccountID, time.Duration(params.Hours)*time.Hour)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPurchases(purchases))
}

// Stats summarizes the caller's purchases.
func (h *PurchaseHandler) Stats(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	stats, err := h.purchaseService.Stats(c.Request.Context(), principal.AccountID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, stats)
}

// Refund returns the points of an active purchase. Admin only.
func (h *PurchaseHandler) Refund(c *gin.Context) {
	id, ok := uuidParam(c, "id", "purchase ID")
	if !ok {
		return
	}

	result, err := h.purchaseService.Refund(c.Request.Context(), &service.RefundRequest{
		PurchaseID:    id,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, PurchaseResultResponse{
		Purchase: mapPurchaseToResponse(result.Purchase),
		Balance:  result.Balance,
	})
}

// Expire persists EXPIRED on one lapsed purchase. Admin only.
func (h *PurchaseHandler) Expire(c *gin.Context) {
	id, ok := uuidParam(c, "id", "purchase ID")
	if !ok {
		return
	}

	p, err := h.purchaseService.Expire(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPurchaseToResponse(p))
}

// Sweep expires every lapsed purchase now. Admin only.
func (h *PurchaseHandler) Sweep(c *gin.Context) {
	expired, err := h.purchaseService.SweepExpired(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, SweepResponse{Expired: expired})
}
