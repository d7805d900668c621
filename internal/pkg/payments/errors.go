package payments

import "errors"

var (
	// ErrValidation marks malformed or incomplete client input.
	ErrValidation = errors.New("invalid payment request")
	// ErrMissingCorrelationKey means no known alias carried a transaction id.
	ErrMissingCorrelationKey = errors.New("notification carries no client transaction id")
	// ErrPurchaseNotFound means the correlation key matched no purchase.
	ErrPurchaseNotFound = errors.New("purchase not found")
	// ErrLedgerTargetNotFound means the beneficiary has no ledger entry. The
	// purchase status update is still committed when this is returned.
	ErrLedgerTargetNotFound = errors.New("balance ledger entry not found")
	// ErrIncompleteLedgerTarget means an approved purchase lacks a beneficiary
	// or a positive amount. The status update is still committed.
	ErrIncompleteLedgerTarget = errors.New("purchase lacks beneficiary or valid amount")
	// ErrGatewayUnavailable covers failed or unusable gateway responses.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
