package entity

import "time"

// CRMContact is a remote contact with the subset of properties requested.
// Missing or null properties read as "".
type CRMContact struct {
	ID         string
	Properties map[string]string
}

func (c CRMContact) Property(name string) string {
	if c.Properties == nil {
		return ""
	}
	return c.Properties[name]
}

type ContactUpdate struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type BatchUpdateResult struct {
	Updated int
	Errors  []string
}

type CRMNote struct {
	ID        string
	ContactID string
	Body      string
	Timestamp time.Time
	CreatedAt time.Time
}
