// Package signers checks that relayer results carry enough distinct signatures from
// known key-management and coprocessor signers.
package signers

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Set is a known signer set and the number of distinct signers required.
type Set struct {
	Addresses []common.Address
	Threshold int
}

// Contains reports whether addr is a member of the set.
func (s Set) Contains(addr common.Address) bool {
	for _, a := range s.Addresses {
		if a == addr {
			return true
		}
	}
	return false
}

// Validate checks the set itself is usable.
func (s Set) Validate() error {
	if s.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %d", s.Threshold)
	}
	if len(s.Addresses) < s.Threshold {
		return fmt.Errorf("threshold %d exceeds signer count %d", s.Threshold, len(s.Addresses))
	}
	seen := make(map[common.Address]struct{}, len(s.Addresses))
	for _, a := range s.Addresses {
		if _, ok := seen[a]; ok {
			return fmt.Errorf("signer %s listed twice", a.Hex())
		}
		seen[a] = struct{}{}
	}
	return nil
}

// DuplicateSignerError reports an address that signed more than once.
type DuplicateSignerError struct {
	Address common.Address
}

func (e *DuplicateSignerError) Error() string {
	return fmt.Sprintf("duplicate signer: %s", e.Address.Hex())
}

// UnknownSignerError reports an address outside the known signer set.
type UnknownSignerError struct {
	Address common.Address
}

func (e *UnknownSignerError) Error() string {
	return fmt.Sprintf("unknown signer: %s", e.Address.Hex())
}

// ThresholdNotReachedError reports too few valid signers.
type ThresholdNotReachedError struct {
	Got       int
	Threshold int
}

func (e *ThresholdNotReachedError) Error() string {
	return fmt.Sprintf("signer threshold not reached: got %d, need %d", e.Got, e.Threshold)
}

// VerifyThreshold checks recovered signer addresses against set. Duplicates are
// checked before membership, and membership before the threshold, so the reported
// error is deterministic for a given input.
func VerifyThreshold(recovered []common.Address, set Set) error {
	seen := make(map[common.Address]struct{}, len(recovered))
	for _, addr := range recovered {
		if _, ok := seen[addr]; ok {
			return &DuplicateSignerError{Address: addr}
		}
		seen[addr] = struct{}{}
	}

	for _, addr := range recovered {
		if !set.Contains(addr) {
			return &UnknownSignerError{Address: addr}
		}
	}

	if len(recovered) < set.Threshold {
		return &ThresholdNotReachedError{Got: len(recovered), Threshold: set.Threshold}
	}
	return nil
}
