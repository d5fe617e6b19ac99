// Package player models the wallet-identified account that owns characters.
package player

import (
	"time"

	"github.com/google/uuid"
)

// Player is an account resolved from a wallet address.
type Player struct {
	ID            uuid.UUID
	WalletAddress string
	// Username is empty until the player picks one.
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
	// LastLogin is nil for a player that has never been resolved.
	LastLogin *time.Time
}
