package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"agency_portal/internal/adapter/http/handlers/mocks"
	"agency_portal/internal/adapter/http/middleware"
	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func newProposalRouter(h *ProposalHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/v1", middleware.ActorMiddleware(""))
	g.POST("/proposals", h.CreateProposal)
	g.GET("/proposals/:id", h.GetProposal)
	g.DELETE("/proposals/:id", h.DeleteProposal)
	g.GET("/proposals/:id/events", h.ListProposalEvents)
	g.POST("/proposals/:id/items", h.AddItems)
	g.PUT("/proposals/:id/items", h.ReplaceItems)
	g.PUT("/proposals/:id/billing-plan", h.SaveBillingPlan)
	g.POST("/proposals/:id/send", h.SendProposal)
	g.POST("/proposals/:id/view", h.ViewProposal)
	g.POST("/proposals/:id/approve", h.ApproveProposal)
	g.POST("/proposals/:id/decline", h.DeclineProposal)
	g.POST("/proposals/:id/revise", h.ReviseProposal)
	g.POST("/proposals/:id/archive", h.ArchiveProposal)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.HeaderActorID, "agent-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sentDetails() usecase.ProposalDetails {
	return usecase.ProposalDetails{
		Proposal: entities.Proposal{ID: "p-1", Status: entities.ProposalStatusSent, Value: 250000, Currency: "USD", InvoiceID: "i-1"},
		Invoice:  &entities.Invoice{ID: "i-1", AmountCents: 250000, Status: entities.InvoiceStatusPending, LockedFromSend: true},
	}
}

func TestProposalHandler_CreateProposal(t *testing.T) {
	t.Run("invalid payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIProposalUseCase(ctrl)
		r := newProposalRouter(NewProposalHandler(uc))

		w := doJSON(r, http.MethodPost, "/v1/proposals", `{"title":"x"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIProposalUseCase(ctrl)
		r := newProposalRouter(NewProposalHandler(uc))

		uc.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, in usecase.CreateProposalInput) (usecase.ProposalDetails, error) {
			if in.ActorID != "agent-1" || in.ClientID != "c-1" {
				return usecase.ProposalDetails{}, fmt.Errorf("unexpected input %+v", in)
			}
			return usecase.ProposalDetails{Proposal: entities.Proposal{ID: "p-1", Status: entities.ProposalStatusDraft}}, nil
		})

		w := doJSON(r, http.MethodPost, "/v1/proposals", `{"client_id":"c-1","title":"Site","client_email":"c@x.io"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("missing actor", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIProposalUseCase(ctrl)
		r := newProposalRouter(NewProposalHandler(uc))

		req := httptest.NewRequest(http.MethodPost, "/v1/proposals", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}

func TestProposalHandler_SendProposal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	uc := mocks.NewMockIProposalUseCase(ctrl)
	r := newProposalRouter(NewProposalHandler(uc))

	uc.EXPECT().Send(gomock.Any(), "p-1", "agent-1").Return(sentDetails(), nil)

	w := doJSON(r, http.MethodPost, "/v1/proposals/p-1/send", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "sent" || body["value"] != 2500.0 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	inv, _ := body["invoice"].(map[string]any)
	if inv["amount"] != 2500.0 || inv["amount_cents"] != 250000.0 {
		t.Fatalf("invoice amount must match proposal value: %s", w.Body.String())
	}
}

func TestProposalHandler_ApproveProposal(t *testing.T) {
	t.Run("missing signature", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIProposalUseCase(ctrl)
		r := newProposalRouter(NewProposalHandler(uc))

		w := doJSON(r, http.MethodPost, "/v1/proposals/p-1/approve", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mocks.NewMockIProposalUseCase(ctrl)
		r := newProposalRouter(NewProposalHandler(uc))

		d := sentDetails()
		d.Proposal.Status = entities.ProposalStatusApproved
		uc.EXPECT().Approve(gomock.Any(), "p-1", "Jane Client", "agent-1").Return(d, nil)

		w := doJSON(r, http.MethodPost, "/v1/proposals/p-1/approve", `{"signature":"Jane Client"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestProposalHandler_DeclineProposal_EmptyBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	uc := mocks.NewMockIProposalUseCase(ctrl)
	r := newProposalRouter(NewProposalHandler(uc))

	uc.EXPECT().Decline(gomock.Any(), "p-1", "", "agent-1").Return(sentDetails(), nil)

	w := doJSON(r, http.MethodPost, "/v1/proposals/p-1/decline", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProposalHandler_Items(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	uc := mocks.NewMockIProposalUseCase(ctrl)
	r := newProposalRouter(NewProposalHandler(uc))

	uc.EXPECT().ReplaceItems(gomock.Any(), "p-1", []usecase.LineItemInput{{ServiceType: "seo", Name: "Audit", Quantity: 1, UnitPrice: 90000}}, "agent-1").
		Return(usecase.ProposalDetails{Proposal: entities.Proposal{ID: "p-1"}}, nil)

	w := doJSON(r, http.MethodPut, "/v1/proposals/p-1/items", `{"items":[{"service_type":"seo","name":"Audit","quantity":1,"unit_price":90000}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodPost, "/v1/proposals/p-1/items", `{"items":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty items, got %d", w.Code)
	}

	uc.EXPECT().AddItems(gomock.Any(), "p-1", gomock.Any(), "agent-1").
		Return(usecase.ProposalDetails{}, usecase.ErrAmountOverflow)
	w = doJSON(r, http.MethodPost, "/v1/proposals/p-1/items", `{"items":[{"service_type":"seo","name":"Audit","quantity":9000000000,"unit_price":9000000000}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overflowing amount, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestProposalHandler_DeleteProposal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	uc := mocks.NewMockIProposalUseCase(ctrl)
	r := newProposalRouter(NewProposalHandler(uc))

	uc.EXPECT().Delete(gomock.Any(), "p-1", "agent-1").Return(nil)

	w := doJSON(r, http.MethodDelete, "/v1/proposals/p-1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestMapProposalError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{usecase.ErrNoServicesSelected, http.StatusBadRequest, "NO_SERVICES_SELECTED"},
		{usecase.ErrInvalidLineItem, http.StatusBadRequest, "INVALID_LINE_ITEM"},
		{fmt.Errorf("line 2: %w", usecase.ErrAmountOverflow), http.StatusBadRequest, "INVALID_LINE_ITEM"},
		{usecase.ErrInvalidBillingPlan, http.StatusBadRequest, "INVALID_BILLING_PLAN"},
		{usecase.ErrInvalidClientID, http.StatusBadRequest, "INVALID_REQUEST"},
		{usecase.ErrProposalNotFound, http.StatusNotFound, "PROPOSAL_NOT_FOUND"},
		{usecase.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{usecase.ErrConcurrentModification, http.StatusConflict, "CONCURRENT_MODIFICATION"},
		{usecase.ErrInvoiceAlreadyPaid, http.StatusConflict, "INVOICE_ALREADY_PAID"},
		{fmt.Errorf("wrapped: %w", usecase.ErrProposalNotDraft), http.StatusConflict, "PROPOSAL_NOT_DRAFT"},
		{errors.New("dynamodb down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		got := mapProposalError(tc.err)
		if got.HTTPStatus != tc.status || got.Code != tc.code {
			t.Fatalf("mapProposalError(%v) = %d %s, want %d %s", tc.err, got.HTTPStatus, got.Code, tc.status, tc.code)
		}
	}
	if msg := mapProposalError(usecase.ErrNoServicesSelected).Message; msg != "Please select at least one service" {
		t.Fatalf("unexpected message %q", msg)
	}
}
