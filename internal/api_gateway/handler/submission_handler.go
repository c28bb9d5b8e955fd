package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emotion-market/point-ledger/internal/api_gateway/middleware"
	"github.com/emotion-market/point-ledger/internal/domain/reward"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
)

// SubmissionHandler serves the emotion submission workflow and its review queue.
type SubmissionHandler struct {
	submissionService service.SubmissionService
	logger            *slog.Logger
}

func NewSubmissionHandler(logger *slog.Logger, submissionService service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		logger:            logger,
	}
}

// Submit records an emotion for the caller and credits its reward.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), &service.SubmitRequest{
		Draft: submission.Draft{
			AccountID:   principal.AccountID,
			EmotionType: submission.EmotionType(req.EmotionType),
			Intensity:   req.Intensity,
			Body:        req.Body,
			Location:    submission.Location(req.Location),
			Tags:        req.Tags,
			Permissions: reward.Permissions{
				AllowResale:        req.AllowResale,
				AllowDerivativeUse: req.AllowDerivativeUse,
			},
		},
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, SubmitResponse{
		Submission:     mapSubmissionToResponse(result.Submission),
		PointsAwarded:  result.Submission.PointsAwarded,
		Reward:         result.Submission.Reward,
		Balance:        result.Balance,
		RemainingToday: result.Remaining,
	})
}

// Get returns one submission. Members only see their own.
func (h *SubmissionHandler) Get(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "submission ID")
	if !ok {
		return
	}

	s, err := h.submissionService.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if s.AccountID != principal.AccountID && !principal.Admin {
		RespondError(c, h.logger, submission.ErrSubmissionNotFound{SubmissionID: id})
		return
	}

	RespondOK(c, mapSubmissionToResponse(s))
}

// List pages through the caller's submissions, newest first.
func (h *SubmissionHandler) List(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	page := pagination.page()
	submissions, total, err := h.submissionService.ListByAccount(c.Request.Context(), principal.AccountID, page)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapSubmissions(submissions), page.Number, page.Size, int(total))
}

// Remaining reports how many submissions the caller has left today.
func (h *SubmissionHandler) Remaining(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	remaining, err := h.submissionService.Remaining(c.Request.Context(), principal.AccountID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, RemainingResponse{Remaining: remaining, DailyLimit: submission.DailyLimit})
}

// Reject reverses an approved submission and claws its reward back. Admin only.
func (h *SubmissionHandler) Reject(c *gin.Context) {
	h.review(c, h.submissionService.Reject)
}

// Approve accepts a pending submission. Admin only.
func (h *SubmissionHandler) Approve(c *gin.Context) {
	h.review(c, h.submissionService.Approve)
}

func (h *SubmissionHandler) review(c *gin.Context, decide func(ctx context.Context, request *service.ReviewRequest) (*service.ReviewResult, error)) {
	principal, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "submission ID")
	if !ok {
		return
	}

	var req ReviewSubmissionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	result, err := decide(c.Request.Context(), &service.ReviewRequest{
		SubmissionID:  id,
		Reviewer:      principal.AccountID.String(),
		Reason:        req.Reason,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	response := ReviewSubmissionResponse{
		Submission: mapSubmissionToResponse(result.Submission),
		Balance:    result.Balance,
	}
	if result.Clawback != nil {
		clawback := mapEntryToResponse(result.Clawback)
		response.Clawback = &clawback
	}
	RespondOK(c, response)
}

// Pending lists submissions awaiting review. Admin only.
func (h *SubmissionHandler) Pending(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	page := pagination.page()
	submissions, total, err := h.submissionService.ListPending(c.Request.Context(), page)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapSubmissions(submissions), page.Number, page.Size, int(total))
}

func mapSubmissions(submissions []*submission.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(submissions))
	for _, s := range submissions {
		out = append(out, mapSubmissionToResponse(s))
	}
	return out
}
