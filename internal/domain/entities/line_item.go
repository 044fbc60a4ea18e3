package entities

import "strings"

// ServiceType tags a line item with the kind of service it prices.
// Tags outside the known set are custom services and carry no clauses.
type ServiceType string

const (
	ServiceTypeWebsite     ServiceType = "website"
	ServiceTypeSEO         ServiceType = "seo"
	ServiceTypeBranding    ServiceType = "branding"
	ServiceTypeSocialMedia ServiceType = "social_media"
	ServiceTypePPC         ServiceType = "ppc"
	ServiceTypeContent     ServiceType = "content"
	ServiceTypeMaintenance ServiceType = "maintenance"
)

func NormalizeServiceType(raw string) ServiceType {
	return ServiceType(strings.ToLower(strings.TrimSpace(raw)))
}

// LineItem is one priced service entry within a proposal.
//
// Storage model (DynamoDB):
//   - PK: proposal_id
//   - SK: id
type LineItem struct {
	ID          string      `json:"id"`
	ProposalID  string      `json:"proposal_id"`
	ServiceType ServiceType `json:"service_type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Quantity    int64       `json:"quantity"`
	UnitPrice   int64       `json:"unit_price"`
	LineTotal   int64       `json:"line_total"`
	SortOrder   int         `json:"sort_order"`
}
