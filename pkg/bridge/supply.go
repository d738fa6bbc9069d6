package bridge

import (
	"fmt"
	"math/bits"
)

// SupplyLedger is the single source of truth for the supply of one asset.
type SupplyLedger struct {
	MaxSupply     uint64
	CurrentSupply uint64
	Authority     Identity
	Decimals      uint8
}

// NewSupplyLedger validates the initialization parameters and returns an empty ledger.
// A zero ceiling means DefaultMaxSupplyCeiling.
func NewSupplyLedger(decimals uint8, maxSupply uint64, authority Identity, ceiling uint64) (*SupplyLedger, error) {
	if ceiling == 0 {
		ceiling = DefaultMaxSupplyCeiling
	}
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidDecimals, decimals, MaxDecimals)
	}
	if maxSupply == 0 {
		return nil, fmt.Errorf("%w: must be positive", ErrInvalidMaxSupply)
	}
	if maxSupply > ceiling {
		return nil, fmt.Errorf("%w: %d exceeds ceiling %d", ErrInvalidMaxSupply, maxSupply, ceiling)
	}
	if authority.IsZero() {
		return nil, fmt.Errorf("%w: default identity", ErrInvalidAuthority)
	}
	return &SupplyLedger{
		MaxSupply:     maxSupply,
		CurrentSupply: 0,
		Authority:     authority,
		Decimals:      decimals,
	}, nil
}

// Validate checks 0 <= CurrentSupply <= MaxSupply.
func (s *SupplyLedger) Validate() error {
	if s.CurrentSupply > s.MaxSupply {
		return fmt.Errorf("%w: current %d above max %d", ErrExceedsMaxSupply, s.CurrentSupply, s.MaxSupply)
	}
	return nil
}

// CheckAuthority fails unless caller is the configured authority.
func (s *SupplyLedger) CheckAuthority(caller Identity) error {
	if caller != s.Authority {
		return fmt.Errorf("%w: %s is not the asset authority", ErrInvalidAuthority, caller)
	}
	return nil
}

// Increase adds amount to the current supply and returns the new supply.
func (s *SupplyLedger) Increase(amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	next, carry := bits.Add64(s.CurrentSupply, amount, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrSupplyOverflow, s.CurrentSupply, amount)
	}
	if next > s.MaxSupply {
		return 0, fmt.Errorf("%w: %d + %d > %d", ErrExceedsMaxSupply, s.CurrentSupply, amount, s.MaxSupply)
	}
	s.CurrentSupply = next
	return s.CurrentSupply, s.Validate()
}

// Decrease removes amount from the current supply and returns the new supply.
func (s *SupplyLedger) Decrease(amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	next, borrow := bits.Sub64(s.CurrentSupply, amount, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d", ErrSupplyUnderflow, s.CurrentSupply, amount)
	}
	s.CurrentSupply = next
	return s.CurrentSupply, s.Validate()
}
