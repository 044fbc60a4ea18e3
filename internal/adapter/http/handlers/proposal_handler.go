package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"agency_portal/internal/adapter/http/dto/request"
	"agency_portal/internal/adapter/http/dto/response"
	"agency_portal/internal/adapter/http/middleware"
	"agency_portal/internal/usecase"
	"agency_portal/pkg"

	"github.com/gin-gonic/gin"
)

var (
	errInvalidProposalPayload = pkg.NewDomainErrorSimple("INVALID_PROPOSAL_INPUT", "Invalid proposal payload", http.StatusBadRequest)
)

// ProposalHandler exposes the proposal lifecycle over HTTP.
type ProposalHandler struct {
	usecase usecase.IProposalUseCase
}

func NewProposalHandler(uc usecase.IProposalUseCase) *ProposalHandler {
	return &ProposalHandler{usecase: uc}
}

// CreateProposal godoc
// @Summary      Create a draft proposal
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Param        payload  body      request.CreateProposalRequest  true  "Proposal"
// @Success      201      {object}  response.ProposalResponse
// @Failure      400      {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /proposals [post]
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	var payload request.CreateProposalRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("[proposal][handler] create invalid payload err=%v", err)
		c.JSON(errInvalidProposalPayload.HTTPStatus, errInvalidProposalPayload.ToHTTPError())
		return
	}

	details, err := h.usecase.Create(c.Request.Context(), payload.ToInput(middleware.ActorID(c)))
	if err != nil {
		writeProposalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.FromProposalDetails(details))
}

// GetProposal godoc
// @Summary      Get a proposal with items, billing plan, invoice and clause snapshots
// @Tags         proposals
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {object}  response.ProposalResponse
// @Failure      404  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /proposals/{id} [get]
func (h *ProposalHandler) GetProposal(c *gin.Context) {
	details, err := h.usecase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromProposalDetails(details))
}

// ListProposalEvents godoc
// @Summary      List the proposal audit log
// @Tags         proposals
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {array}   response.EventResponse
// @Security     Bearer
// @Router       /proposals/{id}/events [get]
func (h *ProposalHandler) ListProposalEvents(c *gin.Context) {
	events, err := h.usecase.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromProposalEvents(events))
}

// AddItems godoc
// @Summary      Append line items to a draft proposal
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Proposal ID"
// @Param        payload  body      request.LineItemsRequest  true  "Items (prices in minor units)"
// @Success      200      {object}  response.ProposalResponse
// @Security     Bearer
// @Router       /proposals/{id}/items [post]
func (h *ProposalHandler) AddItems(c *gin.Context) {
	h.withItems(c, h.usecase.AddItems)
}

// ReplaceItems godoc
// @Summary      Replace all line items of a draft proposal
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Proposal ID"
// @Param        payload  body      request.LineItemsRequest  true  "Items (prices in minor units)"
// @Success      200      {object}  response.ProposalResponse
// @Security     Bearer
// @Router       /proposals/{id}/items [put]
func (h *ProposalHandler) ReplaceItems(c *gin.Context) {
	h.withItems(c, h.usecase.ReplaceItems)
}

func (h *ProposalHandler) withItems(
	c *gin.Context,
	apply func(ctx context.Context, id string, items []usecase.LineItemInput, actorID string) (usecase.ProposalDetails, error),
) {
	var payload request.LineItemsRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("[proposal][handler] items invalid payload proposal_id=%s err=%v", c.Param("id"), err)
		c.JSON(errInvalidProposalPayload.HTTPStatus, errInvalidProposalPayload.ToHTTPError())
		return
	}
	details, err := apply(c.Request.Context(), c.Param("id"), payload.ToInput(), middleware.ActorID(c))
	if err != nil {
		writeProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromProposalDetails(details))
}

// SaveBillingPlan godoc
// @Summary      Create or replace the billing plan
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Proposal ID"
// @Param        payload  body      request.BillingPlanRequest  true  "Billing plan"
// @Success      200      {object}  response.ProposalResponse
// @Security     Bearer
// @Router       /proposals/{id}/billing-plan [put]
func (h *ProposalHandler) SaveBillingPlan(c *gin.Context) {
	var payload request.BillingPlanRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidProposalPayload.HTTPStatus, errInvalidProposalPayload.ToHTTPError())
		return
	}
	details, err := h.usecase.SaveBillingPlan(c.Request.Context(), c.Param("id"), payload.ToInput(), middleware.ActorID(c))
	if err != nil {
		writeProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromProposalDetails(details))
}

// SendProposal godoc
// @Summary      Send a draft proposal to the client
// @Tags         proposals
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {object}  response.ProposalResponse
// @Failure      400  {object}  pkg.HTTPError
// @Failure      409  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /proposals/{id}/send [post]
func (h *ProposalHandler) SendProposal(c *gin.Context) {
	h.transition(c, h.usecase.Send)
}

// ViewProposal godoc
// @Summary      Record that the client opened the proposal
// @Tags         proposals
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {object}  response.ProposalResponse
// @Security     Bearer
// @Router       /proposals/{id}/view [post]
func (h *ProposalHandler) ViewProposal(c *gin.Context) {
	h.transition(c, h.usecase.MarkViewed)
}

// ReviseProposal godoc
// @Summary      Return a proposal to draft for editing
// @Tags         proposals
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {object}  response.ProposalResponse
// @Security     Bearer
// @Router       /proposals/{id}/revise [post]
func (h *ProposalHandler) ReviseProposal(c *gin.Context) {
	h.transition(c, h.usecase.Revise)
}

// ArchiveProposal godoc
// @Summary      Archive a proposal
// @Tags         proposals
// @Produce      json
// @Param        id   path      string  true  "Proposal ID"
// @Success      200  {object}  response.ProposalResponse
// @Security     Bearer
// @Router       /proposals/{id}/archive [post]
func (h *ProposalHandler) ArchiveProposal(c *gin.Context) {
	h.transition(c, h.usecase.Archive)
}

func (h *ProposalHandler) transition(
	c *gin.Context,
	apply func(ctx context.Context, id string, actorID string) (usecase.ProposalDetails, error),
) {
	details, err := apply(c.Request.Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		writeProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromProposalDetails(details))
}

// ApproveProposal godoc
// @Summary      Approve a sent proposal with a signature
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Proposal ID"
// @Param        payload  body      request.ApproveProposalRequest  true  "Signature"
// @Success      200      {object}  response.ProposalResponse
// @Failure      409      {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /proposals/{id}/approve [post]
func (h *ProposalHandler) ApproveProposal(c *gin.Context) {
	var payload request.ApproveProposalRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeProposalError(c, usecase.ErrSignatureRequired)
		return
	}
	details, err := h.usecase.Approve(c.Request.Context(), c.Param("id"), payload.Signature, middleware.ActorID(c))
	if err != nil {
		writeProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromProposalDetails(details))
}

// DeclineProposal godoc
// @Summary      Decline a sent proposal
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true   "Proposal ID"
// @Param        payload  body      request.DeclineProposalRequest  false  "Reason"
// @Success      200      {object}  response.ProposalResponse
// @Security     Bearer
// @Router       /proposals/{id}/decline [post]
func (h *ProposalHandler) DeclineProposal(c *gin.Context) {
	var payload request.DeclineProposalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(errInvalidProposalPayload.HTTPStatus, errInvalidProposalPayload.ToHTTPError())
			return
		}
	}
	details, err := h.usecase.Decline(c.Request.Context(), c.Param("id"), payload.Reason, middleware.ActorID(c))
	if err != nil {
		writeProposalError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromProposalDetails(details))
}

// DeleteProposal godoc
// @Summary      Delete a draft proposal
// @Tags         proposals
// @Param        id   path  string  true  "Proposal ID"
// @Success      204
// @Failure      409  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /proposals/{id} [delete]
func (h *ProposalHandler) DeleteProposal(c *gin.Context) {
	if err := h.usecase.Delete(c.Request.Context(), c.Param("id"), middleware.ActorID(c)); err != nil {
		writeProposalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeProposalError(c *gin.Context, err error) {
	appErr := mapProposalError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Printf("[proposal][handler] %s %s failed err=%v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
}

func mapProposalError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrNoServicesSelected):
		return pkg.NewDomainErrorSimple("NO_SERVICES_SELECTED", usecase.ErrNoServicesSelected.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrSignatureRequired):
		return pkg.NewDomainErrorSimple("SIGNATURE_REQUIRED", "Signature required", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrInvalidLineItem), errors.Is(err, usecase.ErrTooManyLineItems),
		errors.Is(err, usecase.ErrAmountOverflow):
		return pkg.NewDomainErrorSimple("INVALID_LINE_ITEM", "Invalid line items", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrInvalidBillingPlan):
		return pkg.NewDomainErrorSimple("INVALID_BILLING_PLAN", "Invalid billing plan", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrInvalidProposalID), errors.Is(err, usecase.ErrInvalidClientID),
		errors.Is(err, usecase.ErrInvalidClientEmail), errors.Is(err, usecase.ErrInvalidTitle),
		errors.Is(err, usecase.ErrInvalidCurrency), errors.Is(err, usecase.ErrInvalidActor):
		return pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrProposalNotFound):
		return pkg.NewDomainErrorSimple("PROPOSAL_NOT_FOUND", "Proposal not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrProposalNotDraft):
		return pkg.NewDomainErrorSimple("PROPOSAL_NOT_DRAFT", "Proposal is not a draft", http.StatusConflict)
	case errors.Is(err, usecase.ErrProposalExpired):
		return pkg.NewDomainErrorSimple("PROPOSAL_EXPIRED", "Proposal expired", http.StatusConflict)
	case errors.Is(err, usecase.ErrProposalNotExpired):
		return pkg.NewDomainErrorSimple("PROPOSAL_NOT_EXPIRED", "Proposal has not expired", http.StatusConflict)
	case errors.Is(err, usecase.ErrInvoiceAlreadyPaid):
		return pkg.NewDomainErrorSimple("INVOICE_ALREADY_PAID", "Linked invoice already paid", http.StatusConflict)
	case errors.Is(err, usecase.ErrInvalidTransition):
		return pkg.NewDomainErrorSimple("INVALID_TRANSITION", "Invalid proposal status transition", http.StatusConflict)
	case errors.Is(err, usecase.ErrConcurrentModification):
		return pkg.NewDomainErrorSimple("CONCURRENT_MODIFICATION", "Proposal was modified concurrently, retry", http.StatusConflict)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
