package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/urbispulse/internal/api/dto"
	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/service"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// DraftsHandler drives the five-stage reporting workflow.
type DraftsHandler struct {
	submissions *service.SubmissionService
}

// NewDraftsHandler constructs handler.
func NewDraftsHandler(submissions *service.SubmissionService) *DraftsHandler {
	return &DraftsHandler{submissions: submissions}
}

// Start POST /drafts.
func (h *DraftsHandler) Start(c *fiber.Ctx) error {
	draft, err := h.submissions.StartDraft(c.UserContext(), auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDraftResponse(draft)})
}

// Get GET /drafts/:id.
func (h *DraftsHandler) Get(c *fiber.Ctx) error {
	draft, err := h.submissions.GetDraft(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	return respondDraft(c, draft, err)
}

// SelectCategory POST /drafts/:id/category.
func (h *DraftsHandler) SelectCategory(c *fiber.Ctx) error {
	var req dto.SelectCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	draft, err := h.submissions.SelectCategory(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c), req.CategoryID)
	return respondDraft(c, draft, err)
}

// UpdateDetails PUT /drafts/:id/details.
func (h *DraftsHandler) UpdateDetails(c *fiber.Ctx) error {
	var req dto.DraftDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	draft, err := h.submissions.UpdateDetails(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c), service.DetailsInput{
		Title:       req.Title,
		Description: req.Description,
		IsAnonymous: req.IsAnonymous,
	})
	return respondDraft(c, draft, err)
}

// UpdateLocation PUT /drafts/:id/location.
func (h *DraftsHandler) UpdateLocation(c *fiber.Ctx) error {
	var req dto.DraftLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	draft, err := h.submissions.UpdateLocation(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c), service.LocationInput{
		Location:  req.Location,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	return respondDraft(c, draft, err)
}

// Next POST /drafts/:id/next.
func (h *DraftsHandler) Next(c *fiber.Ctx) error {
	draft, err := h.submissions.Next(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	return respondDraft(c, draft, err)
}

// Back POST /drafts/:id/back.
func (h *DraftsHandler) Back(c *fiber.Ctx) error {
	draft, err := h.submissions.Back(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	return respondDraft(c, draft, err)
}

// Preview GET /drafts/:id/preview.
func (h *DraftsHandler) Preview(c *fiber.Ctx) error {
	complaint, err := h.submissions.Preview(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// Commit POST /drafts/:id/commit.
func (h *DraftsHandler) Commit(c *fiber.Ctx) error {
	complaint, err := h.submissions.Commit(c.UserContext(), c.Params("id"), auth.ViewerFromContext(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

func respondDraft(c *fiber.Ctx, draft *domain.Draft, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDraftResponse(draft)})
}
