package entities

import "time"

type BillingPlanType string

const (
	BillingPlanFullUpfront     BillingPlanType = "full_upfront"
	BillingPlanSplit           BillingPlanType = "split"
	BillingPlanMilestones      BillingPlanType = "milestones"
	BillingPlanMonthlyRetainer BillingPlanType = "monthly_retainer"
	BillingPlanCustom          BillingPlanType = "custom"
)

func (t BillingPlanType) Valid() bool {
	switch t {
	case BillingPlanFullUpfront, BillingPlanSplit, BillingPlanMilestones, BillingPlanMonthlyRetainer, BillingPlanCustom:
		return true
	}
	return false
}

// BillingPlan holds the payment terms attached to a proposal.
// Deposit is only meaningful for split plans and never exceeds Total.
type BillingPlan struct {
	ProposalID       string          `json:"proposal_id"`
	Type             BillingPlanType `json:"type"`
	Currency         string          `json:"currency"`
	Total            int64           `json:"total"`
	DepositPercent   int             `json:"deposit_percent"`
	Deposit          int64           `json:"deposit"`
	PaymentTermsDays int             `json:"payment_terms_days"`
	StartDate        *time.Time      `json:"start_date,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
