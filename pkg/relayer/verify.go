package relayer

import (
	"errors"
	"fmt"

	"github.com/R3E-Network/relayer_sdk/pkg/signers"
)

// Verification configures signer checks on relayer results.
type Verification struct {
	GatewayChainID            uint64
	InputVerificationContract Address
	DecryptionContract        Address
	// Coprocessors sign accepted input proofs.
	Coprocessors signers.Set
	// KMSSigners sign public decryption results.
	KMSSigners signers.Set
}

// Validate checks both signer sets.
func (v *Verification) Validate() error {
	if v.GatewayChainID == 0 {
		return errors.New("verification: gateway chain id is required")
	}
	if err := v.Coprocessors.Validate(); err != nil {
		return fmt.Errorf("verification: coprocessors: %w", err)
	}
	if err := v.KMSSigners.Validate(); err != nil {
		return fmt.Errorf("verification: kms signers: %w", err)
	}
	return nil
}

// VerifyInputProof checks an accepted input proof's coprocessor signatures over the
// CiphertextVerification message. Rejected proofs carry no signatures and pass.
func (v *Verification) VerifyInputProof(payload InputProofPayload, res InputProofResult) error {
	if !res.Accepted {
		return nil
	}
	typed := signers.InputVerificationTypedData(
		signers.Domain{ChainID: v.GatewayChainID, VerifyingContract: v.InputVerificationContract.Common()},
		signers.CiphertextVerification{
			Handles:         res.Handles,
			UserAddress:     payload.UserAddress.Common(),
			ContractAddress: payload.ContractAddress.Common(),
			ContractChainID: uint64(payload.ContractChainID),
			ExtraData:       res.ExtraData,
		},
	)
	return signers.VerifyTypedData(typed, signatureBytes(res.Signatures), v.Coprocessors)
}

// VerifyPublicDecrypt checks the KMS signatures over a public decryption.
func (v *Verification) VerifyPublicDecrypt(payload PublicDecryptPayload, res PublicDecryptResult) error {
	typed := signers.PublicDecryptTypedData(
		signers.Domain{ChainID: v.GatewayChainID, VerifyingContract: v.DecryptionContract.Common()},
		signers.PublicDecryptVerification{
			Handles:         payload.CiphertextHandles,
			DecryptedResult: res.DecryptedValue,
			ExtraData:       res.ExtraData,
		},
	)
	return signers.VerifyTypedData(typed, signatureBytes(res.Signatures), v.KMSSigners)
}

func signatureBytes[S ~[]byte](sigs []S) [][]byte {
	out := make([][]byte, len(sigs))
	for i, s := range sigs {
		out[i] = []byte(s)
	}
	return out
}
