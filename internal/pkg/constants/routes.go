package constants

// Static route constants
const (
	PublicRoute = "/"

	PaymentOrderRoute  = "/payments/payphone/order"
	PaymentHookRoute   = "/payments/payphone/hook"
	PaymentCancelRoute = "/payments/payphone/cancel"
)
