package models

// IssueCategory groups health issues by programme.
type IssueCategory string

const (
	CategoryNHM   IssueCategory = "NHM"
	CategoryAyush IssueCategory = "Ayush"
)

// IssueStatus controls whether an issue can be picked for new requests.
type IssueStatus string

const (
	IssueActive   IssueStatus = "active"
	IssueInactive IssueStatus = "inactive"
)

// HealthIssue is a catalog entry a patient picks when requesting a consultation.
type HealthIssue struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Category    IssueCategory `json:"category"`
	Description string        `json:"description"`
	Icon        string        `json:"icon,omitempty"`
	Status      IssueStatus   `json:"status"`
}
