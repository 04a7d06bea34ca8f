package credits

import "time"

// Request statuses. Pending is the only non-terminal state.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// Balance is a user's remaining credits together with the date of the last
// global reset.
type Balance struct {
	UserID           string     `json:"userId"`
	CreditsRemaining int        `json:"creditsRemaining"`
	LastResetDate    *time.Time `json:"lastResetDate,omitempty"`
}

// Request asks an admin for additional credits.
type Request struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Status    string     `json:"status"`
	Amount    int        `json:"amount"`
	CreatedAt time.Time  `json:"createdAt"`
	DecidedAt *time.Time `json:"decidedAt,omitempty"`
}

// Receipt records a successful consume. ResetDate is the reset marker the
// credit was taken under; a refund only applies while the marker is unchanged.
type Receipt struct {
	UserID    string
	ResetDate time.Time
	Remaining int
}
