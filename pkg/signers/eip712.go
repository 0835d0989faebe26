package signers

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// RecoverTypedDataAddress recovers the address that produced sig over the EIP-712
// hash of typed. sig is 65 bytes r||s||v with v in {0,1} or {27,28}.
func RecoverTypedDataAddress(typed apitypes.TypedData, sig []byte) (common.Address, error) {
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return common.Address{}, fmt.Errorf("hash typed data: %w", err)
	}
	return recoverHash(hash, sig)
}

// RecoverSigners recovers one address per signature. The typed-data hash is computed once.
func RecoverSigners(typed apitypes.TypedData, sigs [][]byte) ([]common.Address, error) {
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	out := make([]common.Address, 0, len(sigs))
	for i, sig := range sigs {
		addr, err := recoverHash(hash, sig)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

// VerifyTypedData recovers every signer of typed and checks them against set.
func VerifyTypedData(typed apitypes.TypedData, sigs [][]byte, set Set) error {
	recovered, err := RecoverSigners(typed, sigs)
	if err != nil {
		return err
	}
	return VerifyThreshold(recovered, set)
}

func recoverHash(hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
