package service

import "errors"

// Hard failures: surfaced to the caller, nothing persisted.
var (
	ErrUnknownProduct   = errors.New("unknown product")
	ErrEmptyCart        = errors.New("empty cart")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrRequestNotFound  = errors.New("request not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOfferNotFound    = errors.New("offer not found")
)

// Approval-time discrepancies are corrected in place and reported as
// warnings next to a successful result, never as errors.
const (
	WarnPointsAdjusted    = "points-adjusted"
	WarnInsufficientStock = "insufficient-stock"
)
