package routes

import (
	"agency_portal/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const (
	PathProposals = "/proposals"
	PathInvoices  = "/invoices"
)

func addProposalRoutes(rg *gin.RouterGroup, h *handlers.ProposalHandler) {
	proposals := rg.Group(PathProposals)
	{
		proposals.POST("", h.CreateProposal)
		proposals.GET("/:id", h.GetProposal)
		proposals.DELETE("/:id", h.DeleteProposal)
		proposals.GET("/:id/events", h.ListProposalEvents)

		// Draft editing.
		proposals.POST("/:id/items", h.AddItems)
		proposals.PUT("/:id/items", h.ReplaceItems)
		proposals.PUT("/:id/billing-plan", h.SaveBillingPlan)

		// Lifecycle transitions.
		proposals.POST("/:id/send", h.SendProposal)
		proposals.POST("/:id/view", h.ViewProposal)
		proposals.POST("/:id/approve", h.ApproveProposal)
		proposals.POST("/:id/decline", h.DeclineProposal)
		proposals.POST("/:id/revise", h.ReviseProposal)
		proposals.POST("/:id/archive", h.ArchiveProposal)
	}
}

func addInvoiceRoutes(rg *gin.RouterGroup, h *handlers.InvoiceHandler) {
	invoices := rg.Group(PathInvoices)
	{
		invoices.GET("/:id", h.GetInvoice)
		invoices.GET("/:id/events", h.ListInvoiceEvents)
		invoices.GET("/:id/payments", h.ListInvoicePayments)
		invoices.POST("/:id/send", h.SendInvoice)
		invoices.POST("/:id/payments", h.PayInvoice)
	}
}
