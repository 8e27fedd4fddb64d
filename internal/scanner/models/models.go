// Package models defines registered scanner devices. A scanner is a physical
// or kiosk client allowed to call the verification endpoint; it authenticates
// with a device key, never with an operator token.
package models

import (
	"time"

	id "gatepass/pkg/domain"
)

// Scanner is one registered scanning client. KeyHash is a bcrypt hash; the
// plaintext key is shown once at registration and never stored.
type Scanner struct {
	ID        id.ScannerID
	Name      string
	Location  string
	KeyHash   string
	Active    bool
	CreatedAt time.Time
}
