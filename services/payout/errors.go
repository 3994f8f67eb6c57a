package payout

import "errors"

var (
	// ErrPayoutNotFound marks an unknown payout ID.
	ErrPayoutNotFound = errors.New("payout request not found")

	// ErrInsufficientBalance marks a request exceeding the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBelowMinimumThreshold marks a request smaller than the minimum
	// payable amount.
	ErrBelowMinimumThreshold = errors.New("amount below minimum payout threshold")

	// ErrAlreadyFinalized marks a transition attempt on a paid or failed
	// payout.
	ErrAlreadyFinalized = errors.New("payout request already finalized")
)
