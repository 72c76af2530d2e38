// Package history is the append-only ledger of assessment records.
package history

import "cardiotrack/internal/patient/models"

// Order selects how ListAll sorts records.
type Order int

const (
	// OrderNewest sorts by created_at DESC, id DESC.
	OrderNewest Order = iota
	// OrderProbability sorts by risk_probability DESC, then newest first.
	OrderProbability
)

// Filter narrows ListAll. A zero Filter returns every record newest first.
type Filter struct {
	Verdict models.Verdict
	Order   Order
}
