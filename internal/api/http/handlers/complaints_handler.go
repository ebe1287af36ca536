package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/urbispulse/internal/api/dto"
	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/service"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

const maxPageSize = 100

// ComplaintsHandler serves the feed, the lifecycle and the upvote ledger.
type ComplaintsHandler struct {
	complaints *service.ComplaintService
	feed       *service.FeedService
	engagement *service.EngagementService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaints *service.ComplaintService, feed *service.FeedService, engagement *service.EngagementService) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaints, feed: feed, engagement: engagement}
}

// List GET /complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	tab, err := service.ParseFeedTab(c.Query("tab"))
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	if limit < 0 || offset < 0 {
		return apperrors.NewValidationError("limit and offset must not be negative", nil)
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	items, err := h.feed.Feed(c.UserContext(), auth.ViewerFromContext(c), service.FeedQuery{Tab: tab, Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	out := make([]dto.FeedItemResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.FeedItemResponse{
			ComplaintResponse: dto.NewComplaintResponse(&items[i].Complaint),
			Upvoted:           items[i].Upvoted,
			EffectiveUpvotes:  items[i].EffectiveUpvotes,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	complaint, err := h.complaints.GetForViewer(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// History GET /complaints/:id/history.
func (h *ComplaintsHandler) History(c *fiber.Ctx) error {
	entries, err := h.complaints.History(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}

// Transition POST /complaints/:id/transition.
func (h *ComplaintsHandler) Transition(c *fiber.Ctx) error {
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	complaint, err := h.complaints.TransitionStatus(c.UserContext(), c.Params("id"), req.Status, auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// Advance POST /complaints/:id/advance.
func (h *ComplaintsHandler) Advance(c *fiber.Ctx) error {
	complaint, err := h.complaints.Advance(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// FastTrack POST /complaints/:id/fast-track.
func (h *ComplaintsHandler) FastTrack(c *fiber.Ctx) error {
	complaint, err := h.complaints.FastTrack(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// SetSeverity PUT /complaints/:id/severity.
func (h *ComplaintsHandler) SetSeverity(c *fiber.Ctx) error {
	var req dto.SeverityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Severity.Valid() {
		return apperrors.NewValidationError("severity must be Low, Medium or High", map[string]any{"severity": string(req.Severity)})
	}
	complaint, err := h.complaints.SetSeverity(c.UserContext(), c.Params("id"), req.Severity, auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// Upvote POST /complaints/:id/upvote.
func (h *ComplaintsHandler) Upvote(c *fiber.Ctx) error {
	id := c.Params("id")
	state, err := h.engagement.ToggleUpvote(c.UserContext(), auth.ViewerFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UpvoteResponse{
		ComplaintID:      id,
		Upvoted:          state.Upvoted,
		EffectiveUpvotes: state.EffectiveCount,
	}})
}

// Categories GET /categories.
func Categories(categories []domain.Category) fiber.Handler {
	out := make([]dto.CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, dto.CategoryResponse{ID: cat.ID, Name: cat.Name})
	}
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": out})
	}
}
