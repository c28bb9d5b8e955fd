package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emotion-market/point-ledger/internal/api_gateway/middleware"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
)

// AccountHandler serves balances, ledger history and operator corrections.
type AccountHandler struct {
	accountService service.AccountService
	queryService   service.QueryService
	logger         *slog.Logger
}

func NewAccountHandler(logger *slog.Logger, accountService service.AccountService, queryService service.QueryService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		queryService:   queryService,
		logger:         logger,
	}
}

// Open creates the caller's account and posts the signup grant.
func (h *AccountHandler) Open(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	acc, err := h.accountService.Open(c.Request.Context(), principal.AccountID, middleware.GetCorrelationID(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// Me returns the caller's account.
func (h *AccountHandler) Me(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	acc, err := h.accountService.Get(c.Request.Context(), principal.AccountID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Summary returns balance, lifetime totals and today's remaining quota.
func (h *AccountHandler) Summary(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	summary, err := h.queryService.Summary(c.Request.Context(), principal.AccountID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, summary)
}

// History lists the caller's ledger entries, newest first.
func (h *AccountHandler) History(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var params HistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	page := params.page()
	entries, total, err := h.queryService.History(
		c.Request.Context(),
		principal.AccountID,
		ledger.Filter{Category: ledger.Category(params.Category)},
		page,
	)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	response := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, response, page.Number, page.Size, int(total))
}

// Statistics aggregates the caller's ledger over [from, to).
func (h *AccountHandler) Statistics(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var params StatisticsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "from and to must be RFC3339 timestamps")
		return
	}

	stats, err := h.queryService.Statistics(c.Request.Context(), principal.AccountID, params.From, params.To)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, stats)
}

// Reconcile compares an account's stored balance with its ledger. Admin only.
func (h *AccountHandler) Reconcile(c *gin.Context) {
	accountID, ok := uuidParam(c, "id", "account ID")
	if !ok {
		return
	}

	report, err := h.queryService.Reconcile(c.Request.Context(), accountID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, report)
}

// Adjust credits or debits an account with an operator reason. Admin only.
func (h *AccountHandler) Adjust(c *gin.Context) {
	accountID, ok := uuidParam(c, "id", "account ID")
	if !ok {
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, acc, err := h.accountService.Adjust(c.Request.Context(), &service.AdjustRequest{
		AccountID:     accountID,
		Delta:         req.Delta,
		Reason:        req.Reason,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	h.logger.Info("Balance adjusted",
		"account_id", accountID,
		"delta", req.Delta,
		"balance", acc.Balance,
	)
	RespondCreated(c, AdjustResponse{Entry: mapEntryToResponse(entry), Balance: acc.Balance})
}
