// Package contacts stores customers and vendors. Invoices capture a
// Snapshot at creation so later contact edits do not rewrite history.
package contacts

import "time"

// Contact is a customer or vendor record.
type Contact struct {
	ID        int64
	OrgID     int64
	Name      string
	CUIT      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is the contact data frozen onto an invoice.
type Snapshot struct {
	Name    string
	CUIT    string
	Address string
}

// Snapshot captures the current contact fields.
func (c Contact) Snapshot() Snapshot {
	return Snapshot{Name: c.Name, CUIT: c.CUIT, Address: c.Address}
}
