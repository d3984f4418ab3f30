package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxChallengeAttempts is the number of failed code submissions after which
// a challenge is permanently locked out.
const MaxChallengeAttempts = 5

// Challenge is the server-side record of an issued one-time MFA code.
// A challenge is single-use: once the code is consumed it can never
// validate again, and once HasMore flips to false the user is locked out
// of further attempts against this challenge.
type Challenge struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Code       string     `json:"-"` // never expose
	Attempts   int        `json:"attempts"`
	HasMore    bool       `json:"has_more"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsLockedOut reports whether no further attempts are allowed.
func (c *Challenge) IsLockedOut() bool {
	return !c.HasMore
}
