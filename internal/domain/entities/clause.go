package entities

import "time"

// Clause is a reusable block of legal text identified by a short code.
type Clause struct {
	Code      string `json:"code" yaml:"code"`
	Section   string `json:"section" yaml:"section"`
	Title     string `json:"title" yaml:"title"`
	Body      string `json:"body" yaml:"body"`
	SortOrder int    `json:"sort_order" yaml:"sort_order"`
	Active    bool   `json:"active" yaml:"-"`
}

type SnapshotStatus string

const SnapshotStatusLocked SnapshotStatus = "locked"

// ClauseSnapshot is the immutable set of clauses in force when a
// proposal was sent. One snapshot is written per send; versions are
// monotonic per proposal.
//
// Storage model (DynamoDB):
//   - PK: proposal_id
//   - SK: version
type ClauseSnapshot struct {
	ProposalID  string               `json:"proposal_id"`
	Version     int                  `json:"version"`
	Status      SnapshotStatus       `json:"status"`
	ContentHash string               `json:"content_hash"`
	Items       []ClauseSnapshotItem `json:"items"`
	CreatedAt   time.Time            `json:"created_at"`
}

type ClauseSnapshotItem struct {
	ClauseCode string `json:"clause_code"`
	Section    string `json:"section"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	SortOrder  int    `json:"sort_order"`
}
