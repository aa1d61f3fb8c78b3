package lifecycle

import (
	"fmt"
	"time"
)

// Transaction is the snapshot of a transaction row the engine operates on.
// The engine is pure: each operation validates the actor and current status
// against the transition table and returns an Outcome describing every write
// and side effect; the caller applies the Outcome atomically.
type Transaction struct {
	ID           uint
	ListingID    uint
	ListingTitle string
	BuyerID      uint
	SellerID     uint
	Quantity     int
	Status       Status
	PaymentID    *uint
	BuyerRating  *int
	SellerRating *int
}

// RoleOf returns the actor's side of the transaction, or RoleNone.
func (t Transaction) RoleOf(userID uint) Role {
	switch userID {
	case t.BuyerID:
		return RoleBuyer
	case t.SellerID:
		return RoleSeller
	default:
		return RoleNone
	}
}

// Error is a refused operation. Forbidden failures map to 403, all others
// to 400; either way the transaction is left untouched.
type Error struct {
	Forbidden bool
	Message   string
}

func (e *Error) Error() string { return e.Message }

func forbidden(msg string) *Error { return &Error{Forbidden: true, Message: msg} }
func invalid(msg string) *Error   { return &Error{Message: msg} }

// Notification is an intent to notify a user; delivery happens after the
// Outcome commits.
type Notification struct {
	UserID   uint
	Type     string
	Title    string
	Body     string
	Priority string
}

// DisputeReport is an intent to open a moderation report for a dispute.
type DisputeReport struct {
	ReportedUserID uint
	Description    string
}

// Outcome is the full effect of one accepted operation: column updates on
// the transaction row plus side-effect intents. Callers must apply Updates,
// the report and the refund in one atomic unit and dispatch Notifications
// only after it commits.
type Outcome struct {
	Op            string
	ActorRole     Role
	NewStatus     Status         // empty when the status is unchanged
	Updates       map[string]any // transaction columns to set
	Notifications []Notification
	Dispute       *DisputeReport

	// Rating writes are guarded: RatingColumn must be written only where it
	// is still NULL, and the caller reports a conflict otherwise.
	RatingColumn string
	ReviewColumn string
	Rating       int
	Review       string

	// Cancellation of a paid transaction refunds the payment and restores
	// the listing quantity (re-activating it if it had gone to sold).
	RefundPayment  bool
	RestockListing bool
}

// rule is one row of the transition table: which statuses an operation
// accepts, which roles may perform it, and where it leads.
type rule struct {
	from           []Status
	roles          []Role
	to             Status
	wrongActorMsg  string
	wrongStatusMsg string
}

func (r rule) allowsStatus(s Status) bool {
	for _, v := range r.from {
		if v == s {
			return true
		}
	}
	return false
}

func (r rule) allowsRole(role Role) bool {
	for _, v := range r.roles {
		if v == role {
			return true
		}
	}
	return false
}

const (
	OpUpdateShipping = "update_shipping"
	OpMarkShipped    = "mark_shipped"
	OpMarkDelivered  = "mark_delivered"
	OpRate           = "rate_transaction"
	OpDispute        = "initiate_dispute"
	OpCancel         = "cancel_transaction"
)

// transitions is the single source of truth for the lifecycle graph. Every
// operation routes its actor/status checks through here.
var transitions = map[string]rule{
	OpUpdateShipping: {
		from:           []Status{StatusPaid, StatusShipped},
		roles:          []Role{RoleSeller},
		wrongActorMsg:  "Only the seller can update shipping information",
		wrongStatusMsg: "Cannot update shipping for transaction in current status",
	},
	OpMarkShipped: {
		from:           []Status{StatusPaid},
		roles:          []Role{RoleSeller},
		to:             StatusShipped,
		wrongActorMsg:  "Only the seller can mark items as shipped",
		wrongStatusMsg: "Can only ship paid transactions",
	},
	OpMarkDelivered: {
		from:           []Status{StatusShipped},
		roles:          []Role{RoleBuyer, RoleSeller},
		to:             StatusDelivered,
		wrongActorMsg:  "Access denied",
		wrongStatusMsg: "Can only mark shipped items as delivered",
	},
	OpRate: {
		from:           []Status{StatusDelivered, StatusCompleted},
		roles:          []Role{RoleBuyer, RoleSeller},
		wrongActorMsg:  "Access denied",
		wrongStatusMsg: "Can only rate completed or delivered transactions",
	},
	OpDispute: {
		from: []Status{StatusPending, StatusPaid, StatusShipped,
			StatusDelivered, StatusCancelled, StatusDisputed},
		roles:          []Role{RoleBuyer, RoleSeller},
		to:             StatusDisputed,
		wrongActorMsg:  "Access denied",
		wrongStatusMsg: "Cannot dispute completed transactions",
	},
	OpCancel: {
		from:           []Status{StatusPending, StatusPaid},
		roles:          []Role{RoleBuyer, RoleSeller},
		to:             StatusCancelled,
		wrongActorMsg:  "Access denied",
		wrongStatusMsg: "Cannot cancel transaction in current status",
	},
}

// check validates actor and status for op and returns the actor's role.
// Actor checks run before status checks, so an outsider always gets 403
// regardless of the transaction's state.
func check(op string, t Transaction, actorID uint) (Role, *Error) {
	r, ok := transitions[op]
	if !ok {
		return RoleNone, invalid(fmt.Sprintf("unknown operation %q", op))
	}
	role := t.RoleOf(actorID)
	if !r.allowsRole(role) {
		return role, forbidden(r.wrongActorMsg)
	}
	if !r.allowsStatus(t.Status) {
		return role, invalid(r.wrongStatusMsg)
	}
	return role, nil
}

func (t Transaction) other(role Role) uint {
	if role == RoleBuyer {
		return t.SellerID
	}
	return t.BuyerID
}

// UpdateShipping sets the tracking number and notes without changing status.
func UpdateShipping(t Transaction, actorID uint, tracking, notes string) (Outcome, error) {
	role, err := check(OpUpdateShipping, t, actorID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Op:        OpUpdateShipping,
		ActorRole: role,
		Updates: map[string]any{
			"tracking_number": tracking,
			"notes":           notes,
		},
	}, nil
}

// MarkShipped moves a paid transaction to shipped and notifies the buyer.
func MarkShipped(t Transaction, actorID uint, tracking string) (Outcome, error) {
	role, err := check(OpMarkShipped, t, actorID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Op:        OpMarkShipped,
		ActorRole: role,
		NewStatus: StatusShipped,
		Updates: map[string]any{
			"status":          string(StatusShipped),
			"tracking_number": tracking,
		},
		Notifications: []Notification{{
			UserID:   t.BuyerID,
			Type:     "transaction",
			Title:    "Item Shipped",
			Body:     fmt.Sprintf("Your order for '%s' has been shipped! Tracking: %s", t.ListingTitle, tracking),
			Priority: "medium",
		}},
	}, nil
}

// MarkDelivered moves a shipped transaction to delivered, stamps the
// delivery date and notifies the other party.
func MarkDelivered(t Transaction, actorID uint, now time.Time) (Outcome, error) {
	role, err := check(OpMarkDelivered, t, actorID)
	if err != nil {
		return Outcome{}, err
	}

	note := Notification{
		UserID:   t.other(role),
		Type:     "transaction",
		Priority: "medium",
	}
	if role == RoleBuyer {
		note.Title = "Item Delivered"
		note.Body = fmt.Sprintf("The buyer has confirmed delivery of '%s'", t.ListingTitle)
	} else {
		note.Title = "Delivery Confirmed"
		note.Body = fmt.Sprintf("The seller has marked '%s' as delivered", t.ListingTitle)
	}

	return Outcome{
		Op:        OpMarkDelivered,
		ActorRole: role,
		NewStatus: StatusDelivered,
		Updates: map[string]any{
			"status":        string(StatusDelivered),
			"delivery_date": now,
		},
		Notifications: []Notification{note},
	}, nil
}

// Rate records a 1-5 rating plus review for the actor's side. Each role may
// rate exactly once; when both ratings are present after the write the
// transaction auto-advances to completed. The write itself must be guarded
// (rating column still NULL) so two concurrent calls cannot both succeed.
func Rate(t Transaction, actorID uint, rating int, review string) (Outcome, error) {
	if rating < 1 || rating > 5 {
		return Outcome{}, invalid("Rating must be between 1 and 5")
	}
	role, err := check(OpRate, t, actorID)
	if err != nil {
		return Outcome{}, err
	}

	var existing *int
	ratingCol, reviewCol := "buyer_rating", "buyer_review"
	if role == RoleSeller {
		ratingCol, reviewCol = "seller_rating", "seller_review"
		existing = t.SellerRating
	} else {
		existing = t.BuyerRating
	}
	if existing != nil {
		return Outcome{}, invalid("You have already rated this transaction")
	}

	return Outcome{
		Op:           OpRate,
		ActorRole:    role,
		RatingColumn: ratingCol,
		ReviewColumn: reviewCol,
		Rating:       rating,
		Review:       review,
	}, nil
}

// Dispute moves any non-completed transaction to disputed, opens a
// moderation report against the counter-party and notifies them.
func Dispute(t Transaction, actorID uint, reason string) (Outcome, error) {
	role, err := check(OpDispute, t, actorID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Op:        OpDispute,
		ActorRole: role,
		NewStatus: StatusDisputed,
		Updates: map[string]any{
			"status":         string(StatusDisputed),
			"dispute_reason": reason,
		},
		Dispute: &DisputeReport{
			ReportedUserID: t.other(role),
			Description:    "Transaction dispute: " + reason,
		},
		Notifications: []Notification{{
			UserID:   t.other(role),
			Type:     "transaction",
			Title:    "Transaction Disputed",
			Body:     fmt.Sprintf("A dispute has been initiated for '%s'", t.ListingTitle),
			Priority: "high",
		}},
	}, nil
}

// Cancel moves a pending or paid transaction to cancelled. Buyers may only
// cancel while pending; a buyer on a paid transaction must dispute instead.
// Cancelling a paid transaction with an attached payment refunds it and
// restores the listing quantity.
func Cancel(t Transaction, actorID uint, reason string) (Outcome, error) {
	role, err := check(OpCancel, t, actorID)
	if err != nil {
		return Outcome{}, err
	}
	if role == RoleBuyer && t.Status == StatusPaid {
		return Outcome{}, invalid("Cannot cancel paid transactions. Please contact the seller or initiate a dispute.")
	}

	refund := t.PaymentID != nil && t.Status == StatusPaid

	return Outcome{
		Op:        OpCancel,
		ActorRole: role,
		NewStatus: StatusCancelled,
		Updates: map[string]any{
			"status": string(StatusCancelled),
			"notes":  reason,
		},
		RefundPayment:  refund,
		RestockListing: refund,
		Notifications: []Notification{{
			UserID:   t.other(role),
			Type:     "transaction",
			Title:    "Transaction Cancelled",
			Body:     fmt.Sprintf("The %s has cancelled the transaction. Reason: %s", role, reason),
			Priority: "medium",
		}},
	}, nil
}
