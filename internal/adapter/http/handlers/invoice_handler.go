package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"agency_portal/internal/adapter/http/dto/response"
	"agency_portal/internal/adapter/http/middleware"
	"agency_portal/internal/usecase"
	"agency_portal/pkg"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles HTTP requests for invoices and their payments.
type InvoiceHandler struct {
	usecase usecase.IInvoiceUseCase
}

func NewInvoiceHandler(uc usecase.IInvoiceUseCase) *InvoiceHandler {
	return &InvoiceHandler{usecase: uc}
}

// GetInvoice godoc
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.InvoiceResponse
// @Failure      404  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	inv, err := h.usecase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromInvoice(inv))
}

// ListInvoiceEvents godoc
// @Summary      List the invoice audit log
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {array}   response.EventResponse
// @Security     Bearer
// @Router       /invoices/{id}/events [get]
func (h *InvoiceHandler) ListInvoiceEvents(c *gin.Context) {
	events, err := h.usecase.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromInvoiceEvents(events))
}

// ListInvoicePayments godoc
// @Summary      List payment attempts of an invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {array}   response.InvoicePaymentResponse
// @Security     Bearer
// @Router       /invoices/{id}/payments [get]
func (h *InvoiceHandler) ListInvoicePayments(c *gin.Context) {
	payments, err := h.usecase.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromInvoicePayments(payments))
}

// SendInvoice godoc
// @Summary      Send an unlocked invoice to the client
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.InvoiceResponse
// @Failure      409  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	inv, err := h.usecase.Send(c.Request.Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromInvoice(inv))
}

// PayInvoice godoc
// @Summary      Pay an activated invoice through Mercado Pago
// @Description  Body is a Mercado Pago payment request, bare or wrapped as {"mp_payload": {...}}. transaction_amount is always taken from the invoice.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.PayInvoiceResponse
// @Failure      400  {object}  pkg.HTTPError
// @Failure      409  {object}  pkg.HTTPError
// @Security     Bearer
// @Router       /invoices/{id}/payments [post]
func (h *InvoiceHandler) PayInvoice(c *gin.Context) {
	invoiceID := c.Param("id")
	log.Printf("[payment][handler] pay start invoice_id=%s", invoiceID)
	mpPayload, err := readMPPayload(c)
	if err != nil {
		log.Printf("[payment][handler] invalid payload invoice_id=%s err=%v", invoiceID, err)
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	payment, inv, err := h.usecase.Pay(c.Request.Context(), invoiceID, mpPayload, middleware.ActorID(c))
	if err != nil {
		log.Printf("[payment][handler] pay failed invoice_id=%s err=%v", invoiceID, err)
		writeInvoiceError(c, err)
		return
	}
	log.Printf("[payment][handler] pay success invoice_id=%s payment_id=%s status=%s", invoiceID, payment.ID, payment.Status)

	c.JSON(http.StatusOK, response.PayInvoiceResponse{
		Payment: response.FromInvoicePayment(payment),
		Invoice: response.FromInvoice(inv),
	})
}

// readMPPayload accepts a bare provider request or one wrapped in mp_payload.
func readMPPayload(c *gin.Context) (json.RawMessage, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("request body is not valid json")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if wrapped, ok := envelope["mp_payload"]; ok {
			if trimmed := strings.TrimSpace(string(wrapped)); trimmed == "" || trimmed == "null" {
				return nil, errors.New("mp_payload cannot be empty")
			}
			return wrapped, nil
		}
	}

	return json.RawMessage(raw), nil
}

func writeInvoiceError(c *gin.Context, err error) {
	appErr := mapInvoiceError(err)
	c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
}

func mapInvoiceError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidInvoiceID), errors.Is(err, usecase.ErrInvalidPaymentPayload),
		errors.Is(err, usecase.ErrPaymentGatewayBadRequest), errors.Is(err, usecase.ErrInvalidActor):
		return pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPaymentGatewayCustomerNotFound):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_CUSTOMER_NOT_FOUND", "Payer not found for this Mercado Pago test context", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPaymentGatewayInvalidUsers):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_INVALID_USERS", "Invalid users involved between seller token and payer test user", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrPaymentGatewayUnauthorized):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_UNAUTHORIZED", "Payment provider unauthorized", http.StatusUnauthorized)
	case errors.Is(err, usecase.ErrPaymentGatewayNotConfigured):
		return pkg.NewDomainErrorSimple("PAYMENT_PROVIDER_UNAVAILABLE", "Payment provider not configured", http.StatusServiceUnavailable)
	case errors.Is(err, usecase.ErrInvoiceNotFound):
		return pkg.NewDomainErrorSimple("INVOICE_NOT_FOUND", "Invoice not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrInvoiceLocked):
		return pkg.NewDomainErrorSimple("INVOICE_LOCKED", "Invoice is locked by its proposal", http.StatusConflict)
	case errors.Is(err, usecase.ErrInvoiceNotSendable):
		return pkg.NewDomainErrorSimple("INVOICE_NOT_SENDABLE", "Invoice cannot be sent in its current status", http.StatusConflict)
	case errors.Is(err, usecase.ErrInvoiceNotPayable):
		return pkg.NewDomainErrorSimple("INVOICE_NOT_PAYABLE", "Invoice is not payable", http.StatusConflict)
	case errors.Is(err, usecase.ErrConcurrentModification):
		return pkg.NewDomainErrorSimple("CONCURRENT_MODIFICATION", "Invoice was modified concurrently, retry", http.StatusConflict)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
