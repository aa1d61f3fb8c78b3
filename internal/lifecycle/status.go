package lifecycle

import "strings"

// Status is the closed set of transaction lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusDisputed  Status = "disputed"
)

// AllStatuses lists every valid lifecycle state.
var AllStatuses = []Status{
	StatusPending, StatusPaid, StatusShipped, StatusDelivered,
	StatusCompleted, StatusCancelled, StatusDisputed,
}

// Valid reports whether s is one of the enumerated states.
func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

var statusDisplay = map[Status]string{
	StatusPending:   "Pending Payment",
	StatusPaid:      "Payment Confirmed",
	StatusShipped:   "Shipped",
	StatusDelivered: "Delivered",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
	StatusDisputed:  "Disputed",
}

// Display returns the human label for s, falling back to the capitalized
// raw value for anything unmapped.
func (s Status) Display() string {
	if d, ok := statusDisplay[s]; ok {
		return d
	}
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[0])) + string(s[1:])
}

// Role identifies which side of a transaction an actor is on.
type Role int

const (
	RoleNone Role = iota
	RoleBuyer
	RoleSeller
)

func (r Role) String() string {
	switch r {
	case RoleBuyer:
		return "buyer"
	case RoleSeller:
		return "seller"
	default:
		return "none"
	}
}
