package models

// Sync outcome statuses reported to the webhook sender.
const (
	SyncStatusCreated       = "created"
	SyncStatusAlreadyExists = "already_exists"
)

// PurchaseStatusActive is the only status a purchase is ever created with.
const PurchaseStatusActive = "active"

// PyrusTask is a purchase request task as returned by the Pyrus API.
// Optional JSON fields are modeled as pointers so that absence stays a typed
// "none" instead of a runtime map lookup.
type PyrusTask struct {
	ID           int               `json:"id"`
	Subject      string            `json:"subject"`
	B2BID        *string           `json:"b2b_id,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	Fields       []TaskField       `json:"fields"`
	Attachments  []Attachment      `json:"attachments,omitempty"`
	Deadline     *string           `json:"deadline,omitempty"`
}

// TaskField is a single typed field on a Pyrus task. Quantity and Price are
// only present on lot fields.
type TaskField struct {
	ID       string   `json:"id"`
	Value    string   `json:"value"`
	Quantity *float64 `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// Attachment is a file attached to a Pyrus task. Type is optional.
type Attachment struct {
	Name string  `json:"name"`
	URL  string  `json:"url"`
	Type *string `json:"type,omitempty"`
}

// Lot is a line item derived from a tagged task field. Lots are built fresh
// on every extraction, never stored.
type Lot struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// Document is derived 1:1 from a task attachment.
type Document struct {
	Name string  `json:"name"`
	URL  string  `json:"url"`
	Type *string `json:"type,omitempty"`
}

// CreatePurchaseRequest is the payload submitted to B2B-Center when a
// purchase is created. Status is always PurchaseStatusActive.
type CreatePurchaseRequest struct {
	Name      string     `json:"name"`
	B2BID     *string    `json:"b2b_id,omitempty"`
	Lots      []Lot      `json:"lots"`
	Documents []Document `json:"documents"`
	Deadline  *string    `json:"deadline,omitempty"`
	Status    string     `json:"status"`
}

// Participant is a counterparty registered on a B2B-Center purchase.
// Read-only from our side.
type Participant struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// SyncOutcome is the orchestrator's terminal result for a create-or-report run.
type SyncOutcome struct {
	Status        string `json:"status"`
	PurchaseID    string `json:"purchase_id"`
	B2BPurchaseID string `json:"b2b_purchase_id,omitempty"`
}
