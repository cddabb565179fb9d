package enum

// Status values are stored verbatim in documents. The capitalized
// spellings match what the original frontend wrote, so existing
// collections stay readable.

const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusCompleted  = "Completed"
	OrderStatusCancelled  = "Cancelled"
)

const (
	InvoiceStatusPending = "Pending"
	InvoiceStatusPaid    = "Paid"
	InvoiceStatusOverdue = "Overdue"
)

const (
	ClientStatusActive   = "Active"
	ClientStatusInactive = "Inactive"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidInvoiceStatus reports whether s is a known invoice status.
func ValidInvoiceStatus(s string) bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// ValidClientStatus reports whether s is a known client status.
func ValidClientStatus(s string) bool {
	switch s {
	case ClientStatusActive, ClientStatusInactive:
		return true
	}
	return false
}
