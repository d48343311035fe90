package shared

// DocumentStatus is the lifecycle state of a sales/purchase document or note.
type DocumentStatus string

const (
	StatusDraft             DocumentStatus = "draft"
	StatusConfirmed         DocumentStatus = "confirmed"
	StatusPartiallyPaid     DocumentStatus = "partially_paid"
	StatusPaid              DocumentStatus = "paid"
	StatusCancelled         DocumentStatus = "cancelled"
	StatusPending           DocumentStatus = "pending"
	StatusPartiallyReceived DocumentStatus = "partially_received"
	StatusCompleted         DocumentStatus = "completed"
)

// IsPosted reports whether an invoice or note counts toward derived balances.
// Only confirmed-or-later rows count; draft and cancelled rows never do.
func IsPosted(status DocumentStatus) bool {
	switch status {
	case StatusConfirmed, StatusPartiallyPaid, StatusPaid:
		return true
	}
	return false
}

// IsReceived reports whether a purchase order has goods booked into stock.
func IsReceived(status DocumentStatus) bool {
	return status == StatusPartiallyReceived || status == StatusCompleted
}
