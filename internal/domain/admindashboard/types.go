package admindashboard

import "context"

type Overview struct {
	// Payments
	TotalPayments     int64 `json:"total_payments"`
	PendingPayments   int64 `json:"pending_payments"`
	CompletedPayments int64 `json:"completed_payments"`
	FailedPayments    int64 `json:"failed_payments"`

	// Completed amounts in paisa
	DonationsPaisa   int64 `json:"donations_paisa"`
	MembershipsPaisa int64 `json:"memberships_paisa"`
	EventsPaisa      int64 `json:"events_paisa"`

	// Members
	PendingMembers  int64 `json:"pending_members"`
	ApprovedMembers int64 `json:"approved_members"`

	ByGateway []GatewayTotal `json:"by_gateway"`
}

// GatewayTotal is the completed volume of one gateway.
type GatewayTotal struct {
	Provider    string `json:"provider"`
	Count       int64  `json:"count"`
	AmountPaisa int64  `json:"amount_paisa"`
}

type Store interface {
	GetOverview(ctx context.Context) (*Overview, error)
}
