package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agency_portal/internal/adapter/http/handlers/mocks"
	"agency_portal/internal/adapter/http/middleware"
	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

type failingReadCloser struct{}

func (failingReadCloser) Read(_ []byte) (int, error) { return 0, errors.New("read error") }
func (failingReadCloser) Close() error               { return nil }

func newInvoiceRouter(h *InvoiceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/v1", middleware.ActorMiddleware(""))
	g.GET("/invoices/:id", h.GetInvoice)
	g.GET("/invoices/:id/events", h.ListInvoiceEvents)
	g.GET("/invoices/:id/payments", h.ListInvoicePayments)
	g.POST("/invoices/:id/send", h.SendInvoice)
	g.POST("/invoices/:id/payments", h.PayInvoice)
	return r
}

func TestInvoiceHandler_SendInvoice(t *testing.T) {
	t.Run("locked", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		r := newInvoiceRouter(NewInvoiceHandler(uc))

		uc.EXPECT().Send(gomock.Any(), "i-1", "agent-1").Return(entities.Invoice{}, usecase.ErrInvoiceLocked)

		w := doJSON(r, http.MethodPost, "/v1/invoices/i-1/send", "")
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["code"] != "INVOICE_LOCKED" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		r := newInvoiceRouter(NewInvoiceHandler(uc))

		uc.EXPECT().Send(gomock.Any(), "i-1", "agent-1").Return(entities.Invoice{ID: "i-1", Status: entities.InvoiceStatusPending}, nil)

		w := doJSON(r, http.MethodPost, "/v1/invoices/i-1/send", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestInvoiceHandler_GetInvoice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	uc := mocks.NewMockIInvoiceUseCase(ctrl)
	r := newInvoiceRouter(NewInvoiceHandler(uc))

	uc.EXPECT().Get(gomock.Any(), "missing").Return(entities.Invoice{}, usecase.ErrInvoiceNotFound)
	uc.EXPECT().Get(gomock.Any(), "i-1").Return(entities.Invoice{ID: "i-1", AmountCents: 1050}, nil)

	if w := doJSON(r, http.MethodGet, "/v1/invoices/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	w := doJSON(r, http.MethodGet, "/v1/invoices/i-1", "")
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["amount"] != 10.5 || body["amount_cents"] != 1050.0 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestInvoiceHandler_PayInvoice(t *testing.T) {
	t.Run("invalid payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		r := newInvoiceRouter(NewInvoiceHandler(uc))

		w := doJSON(r, http.MethodPost, "/v1/invoices/i-1/payments", "{")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("empty wrapped payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		r := newInvoiceRouter(NewInvoiceHandler(uc))

		w := doJSON(r, http.MethodPost, "/v1/invoices/i-1/payments", `{"mp_payload":null}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("not payable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		r := newInvoiceRouter(NewInvoiceHandler(uc))

		uc.EXPECT().Pay(gomock.Any(), "i-1", gomock.Any(), "agent-1").Return(entities.InvoicePayment{}, entities.Invoice{}, usecase.ErrInvoiceNotPayable)

		w := doJSON(r, http.MethodPost, "/v1/invoices/i-1/payments", `{"payment_method_id":"pix"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("success unwraps mp_payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIInvoiceUseCase(ctrl)
		r := newInvoiceRouter(NewInvoiceHandler(uc))

		now := time.Now().UTC()
		uc.EXPECT().Pay(gomock.Any(), "i-1", json.RawMessage(`{"payment_method_id":"pix"}`), "agent-1").Return(
			entities.InvoicePayment{ID: "pay-1", InvoiceID: "i-1", Date: now, Status: entities.PaymentStatusApproved, AmountCents: 2000},
			entities.Invoice{ID: "i-1", Status: entities.InvoiceStatusPaid, PaidAt: &now},
			nil,
		)

		w := doJSON(r, http.MethodPost, "/v1/invoices/i-1/payments", `{"mp_payload":{"payment_method_id":"pix"}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
		}
		var body map[string]map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["payment"]["payment_id"] != "pay-1" || body["invoice"]["status"] != "paid" {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestReadMPPayload_ReadError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(""))
	c.Request.Body = failingReadCloser{}

	if _, err := readMPPayload(c); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestMapInvoiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{usecase.ErrInvalidPaymentPayload, http.StatusBadRequest},
		{usecase.ErrPaymentGatewayCustomerNotFound, http.StatusBadRequest},
		{usecase.ErrPaymentGatewayUnauthorized, http.StatusUnauthorized},
		{usecase.ErrInvoiceNotFound, http.StatusNotFound},
		{usecase.ErrInvoiceLocked, http.StatusConflict},
		{usecase.ErrInvoiceNotSendable, http.StatusConflict},
		{usecase.ErrConcurrentModification, http.StatusConflict},
		{usecase.ErrPaymentGatewayNotConfigured, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapInvoiceError(tc.err).HTTPStatus; got != tc.status {
			t.Fatalf("mapInvoiceError(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}
