package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }

func paidTx() Transaction {
	return Transaction{
		ID:           42,
		ListingID:    10,
		ListingTitle: "Mountain Bike",
		BuyerID:      3,
		SellerID:     7,
		Quantity:     1,
		Status:       StatusPaid,
	}
}

func TestMarkShipped_Success(t *testing.T) {
	out, err := MarkShipped(paidTx(), 7, "T123")
	require.NoError(t, err)

	assert.Equal(t, StatusShipped, out.NewStatus)
	assert.Equal(t, "shipped", out.Updates["status"])
	assert.Equal(t, "T123", out.Updates["tracking_number"])

	require.Len(t, out.Notifications, 1)
	note := out.Notifications[0]
	assert.Equal(t, uint(3), note.UserID, "buyer is notified")
	assert.Equal(t, "transaction", note.Type)
	assert.Equal(t, "medium", note.Priority)
	assert.Contains(t, note.Body, "T123")
}

func TestMarkShipped_WrongActor(t *testing.T) {
	tx := paidTx()

	_, err := MarkShipped(tx, 3, "T123") // buyer
	var lcErr *Error
	require.ErrorAs(t, err, &lcErr)
	assert.True(t, lcErr.Forbidden)

	_, err = MarkShipped(tx, 99, "T123") // outsider
	require.ErrorAs(t, err, &lcErr)
	assert.True(t, lcErr.Forbidden)
}

func TestMarkShipped_WrongStatus(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusShipped, StatusDelivered, StatusCompleted, StatusCancelled, StatusDisputed} {
		tx := paidTx()
		tx.Status = status

		_, err := MarkShipped(tx, 7, "T123")
		var lcErr *Error
		require.ErrorAs(t, err, &lcErr, "status %s", status)
		assert.False(t, lcErr.Forbidden, "status %s maps to 400, not 403", status)
	}
}

func TestMarkDelivered_OutsiderForbidden(t *testing.T) {
	tx := paidTx()
	tx.Status = StatusShipped

	_, err := MarkDelivered(tx, 99, time.Now())
	var lcErr *Error
	require.ErrorAs(t, err, &lcErr)
	assert.True(t, lcErr.Forbidden)
}

func TestMarkDelivered_NotifiesOtherParty(t *testing.T) {
	tx := paidTx()
	tx.Status = StatusShipped
	now := time.Now()

	out, err := MarkDelivered(tx, tx.BuyerID, now)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, out.NewStatus)
	assert.Equal(t, now, out.Updates["delivery_date"])
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, tx.SellerID, out.Notifications[0].UserID)
	assert.Equal(t, "Item Delivered", out.Notifications[0].Title)

	out, err = MarkDelivered(tx, tx.SellerID, now)
	require.NoError(t, err)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, tx.BuyerID, out.Notifications[0].UserID)
	assert.Equal(t, "Delivery Confirmed", out.Notifications[0].Title)
}

func TestUpdateShipping_AllowedWhilePaidOrShipped(t *testing.T) {
	for _, status := range []Status{StatusPaid, StatusShipped} {
		tx := paidTx()
		tx.Status = status

		out, err := UpdateShipping(tx, 7, "T999", "left at depot")
		require.NoError(t, err)
		assert.Empty(t, out.NewStatus, "shipping update never changes status")
		assert.Equal(t, "T999", out.Updates["tracking_number"])
		assert.Equal(t, "left at depot", out.Updates["notes"])
	}
}

func TestRate_Validation(t *testing.T) {
	tx := paidTx()
	tx.Status = StatusDelivered

	_, err := Rate(tx, tx.BuyerID, 0, "")
	assert.Error(t, err)
	_, err = Rate(tx, tx.BuyerID, 6, "")
	assert.Error(t, err)

	tx.Status = StatusShipped
	_, err = Rate(tx, tx.BuyerID, 5, "")
	var lcErr *Error
	require.ErrorAs(t, err, &lcErr)
	assert.False(t, lcErr.Forbidden)
}

func TestRate_WriteOncePerRole(t *testing.T) {
	tx := paidTx()
	tx.Status = StatusDelivered
	tx.BuyerRating = intPtr(5)

	_, err := Rate(tx, tx.BuyerID, 4, "changed my mind")
	var lcErr *Error
	require.ErrorAs(t, err, &lcErr)
	assert.False(t, lcErr.Forbidden)
	assert.Equal(t, "You have already rated this transaction", lcErr.Message)

	// The seller's slot is still open.
	out, err := Rate(tx, tx.SellerID, 4, "smooth deal")
	require.NoError(t, err)
	assert.Equal(t, "seller_rating", out.RatingColumn)
	assert.Equal(t, "seller_review", out.ReviewColumn)
	assert.Equal(t, 4, out.Rating)
}

func TestRate_RoleColumns(t *testing.T) {
	tx := paidTx()
	tx.Status = StatusDelivered

	out, err := Rate(tx, tx.BuyerID, 5, "great seller")
	require.NoError(t, err)
	assert.Equal(t, "buyer_rating", out.RatingColumn)

	_, err = Rate(tx, 99, 5, "")
	var lcErr *Error
	require.ErrorAs(t, err, &lcErr)
	assert.True(t, lcErr.Forbidden)
}

func TestDispute_BlockedOnlyWhenCompleted(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled, StatusDisputed} {
		tx := paidTx()
		tx.Status = status

		out, err := Dispute(tx, tx.BuyerID, "never arrived")
		require.NoError(t, err, "status %s", status)
		assert.Equal(t, StatusDisputed, out.NewStatus)
		require.NotNil(t, out.Dispute)
		assert.Equal(t, tx.SellerID, out.Dispute.ReportedUserID)
		assert.Contains(t, out.Dispute.Description, "never arrived")
		require.Len(t, out.Notifications, 1)
		assert.Equal(t, "high", out.Notifications[0].Priority)
	}

	tx := paidTx()
	tx.Status = StatusCompleted
	_, err := Dispute(tx, tx.BuyerID, "too late")
	var lcErr *Error
	require.ErrorAs(t, err, &lcErr)
	assert.False(t, lcErr.Forbidden)
}

func TestCancel_BuyerCannotCancelPaid(t *testing.T) {
	tx := paidTx()

	_, err := Cancel(tx, tx.BuyerID, "changed my mind")
	var lcErr *Error
	require.ErrorAs(t, err, &lcErr)
	assert.False(t, lcErr.Forbidden)
	assert.Contains(t, lcErr.Message, "dispute")
}

func TestCancel_SellerCancelPaidRefunds(t *testing.T) {
	tx := paidTx()
	tx.PaymentID = uintPtr(55)

	out, err := Cancel(tx, tx.SellerID, "out of stock")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.NewStatus)
	assert.True(t, out.RefundPayment)
	assert.True(t, out.RestockListing)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, tx.BuyerID, out.Notifications[0].UserID)
	assert.Contains(t, out.Notifications[0].Body, "seller has cancelled")
}

func TestCancel_PendingNoRefund(t *testing.T) {
	tx := paidTx()
	tx.Status = StatusPending
	tx.PaymentID = uintPtr(55)

	out, err := Cancel(tx, tx.BuyerID, "found a better deal")
	require.NoError(t, err)
	assert.False(t, out.RefundPayment, "refund only applies to paid transactions")
	assert.False(t, out.RestockListing)
}

func TestCancel_TerminalStatesRejected(t *testing.T) {
	for _, status := range []Status{StatusShipped, StatusDelivered, StatusCompleted, StatusCancelled, StatusDisputed} {
		tx := paidTx()
		tx.Status = status

		_, err := Cancel(tx, tx.SellerID, "no")
		var lcErr *Error
		require.ErrorAs(t, err, &lcErr, "status %s", status)
		assert.False(t, lcErr.Forbidden)
	}
}

func TestStatusDisplay(t *testing.T) {
	assert.Equal(t, "Pending Payment", StatusPending.Display())
	assert.Equal(t, "Payment Confirmed", StatusPaid.Display())
	assert.Equal(t, "Disputed", StatusDisputed.Display())
	assert.Equal(t, "Weird", Status("weird").Display())
}

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("refunded").Valid())
	assert.False(t, Status("").Valid())
}

func TestRoleOf(t *testing.T) {
	tx := paidTx()
	assert.Equal(t, RoleBuyer, tx.RoleOf(3))
	assert.Equal(t, RoleSeller, tx.RoleOf(7))
	assert.Equal(t, RoleNone, tx.RoleOf(12))
}
