// Package pack defines the normalized activity pack the pipeline consumes.
// Parsing raw exports (CSV/XLSX) into this shape happens upstream; the
// pipeline only ever sees these records.
package pack

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Quote statuses as normalized by ingestion.
const (
	QuoteStatusDraft    = "draft"
	QuoteStatusSent     = "sent"
	QuoteStatusApproved = "approved"
	QuoteStatusDeclined = "declined"
)

// Invoice statuses.
const (
	InvoiceStatusSent = "sent"
	InvoiceStatusPaid = "paid"
)

// Job statuses.
const (
	JobStatusScheduled = "scheduled"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)

// Quote is a single normalized quotation record.
type Quote struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	Status     string     `json:"status"`
	Total      float64    `json:"total"`
}

// Invoice is a single normalized invoice record.
type Invoice struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	Status     string     `json:"status"`
	Total      float64    `json:"total"`
}

// Job is a single normalized scheduled-work record.
type Job struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      string     `json:"status"`
	Total       float64    `json:"total"`
}

// Customer is a single normalized customer record.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Pack holds up to four optional entity lists for one business. Any list
// may be empty; the bucketing engine treats absence as a representable
// state, never an error.
type Pack struct {
	BusinessName string     `json:"business_name,omitempty"`
	Industry     string     `json:"industry,omitempty"`
	Quotes       []Quote    `json:"quotes,omitempty"`
	Invoices     []Invoice  `json:"invoices,omitempty"`
	Jobs         []Job      `json:"jobs,omitempty"`
	Customers    []Customer `json:"customers,omitempty"`
}

// Load decodes a normalized pack from JSON. Unknown fields from looser
// upstream exporters are tolerated here at the boundary; core contracts
// stay closed.
func Load(r io.Reader) (*Pack, error) {
	var p Pack
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode pack: %w", err)
	}
	return &p, nil
}

// LoadFile reads and decodes a pack from disk.
func LoadFile(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pack: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// NormalizeIndustry maps a free-text industry string onto the closed key
// set used throughout the pipeline.
func NormalizeIndustry(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hvac", "heating", "cooling", "heating and cooling":
		return "hvac"
	case "plumbing", "plumber":
		return "plumbing"
	case "electrical", "electrician":
		return "electrical"
	case "landscaping", "lawn care", "landscaper":
		return "landscaping"
	case "cleaning", "janitorial":
		return "cleaning"
	default:
		return "unknown"
	}
}
