package services

import "errors"

// Failure modes of the transaction lifecycle. Stale confirmation counts and
// already-notified MarkNotified calls are not errors; they are defined no-op
// outcomes.
var (
	ErrInvalidRequest            = errors.New("invalid payment request")
	ErrAddressProvisioningFailed = errors.New("address provisioning failed")
	ErrRateUnavailable           = errors.New("exchange rate unavailable")
	ErrSubscriptionFailed        = errors.New("confirmation subscription failed")
	ErrNoTransactionLoaded       = errors.New("no transaction loaded")
)
