package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agency_portal/internal/adapter/http/handlers/mocks"
	"agency_portal/internal/adapter/http/middleware"
	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestNewRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	proposals := mocks.NewMockIProposalUseCase(ctrl)
	invoices := mocks.NewMockIInvoiceUseCase(ctrl)
	r := NewRouter("", proposals, invoices)

	t.Run("ping is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics exposes portal counters", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))
	})

	t.Run("v1 requires an actor", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/proposals/p-1", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("proposal route wired", func(t *testing.T) {
		proposals.EXPECT().MarkViewed(gomock.Any(), "p-1", "client-1").
			Return(usecase.ProposalDetails{Proposal: entities.Proposal{ID: "p-1", Status: entities.ProposalStatusViewed}}, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/proposals/p-1/view", nil)
		req.Header.Set(middleware.HeaderActorID, "client-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invoice route wired", func(t *testing.T) {
		invoices.EXPECT().ListPayments(gomock.Any(), "i-1").Return(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/invoices/i-1/payments", nil)
		req.Header.Set(middleware.HeaderActorID, "agent-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}
