package signers

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var eip712DomainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// Domain identifies the gateway contract a signature is bound to.
type Domain struct {
	ChainID           uint64
	VerifyingContract common.Address
}

func (d Domain) typed(name string) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              name,
		Version:           "1",
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(d.ChainID)),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// CiphertextVerification is the message coprocessors sign when they accept an input proof.
type CiphertextVerification struct {
	Handles         []common.Hash
	UserAddress     common.Address
	ContractAddress common.Address
	ContractChainID uint64
	ExtraData       []byte
}

// InputVerificationTypedData builds the EIP-712 payload for an accepted input proof.
func InputVerificationTypedData(domain Domain, msg CiphertextVerification) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": eip712DomainType,
			"CiphertextVerification": {
				{Name: "ctHandles", Type: "bytes32[]"},
				{Name: "userAddress", Type: "address"},
				{Name: "contractAddress", Type: "address"},
				{Name: "contractChainId", Type: "uint256"},
				{Name: "extraData", Type: "bytes"},
			},
		},
		PrimaryType: "CiphertextVerification",
		Domain:      domain.typed("InputVerification"),
		Message: apitypes.TypedDataMessage{
			"ctHandles":       hashList(msg.Handles),
			"userAddress":     msg.UserAddress.Hex(),
			"contractAddress": msg.ContractAddress.Hex(),
			"contractChainId": new(big.Int).SetUint64(msg.ContractChainID).String(),
			"extraData":       hexutil.Encode(msg.ExtraData),
		},
	}
}

// PublicDecryptVerification is the message KMS signers sign over a public decryption.
type PublicDecryptVerification struct {
	Handles         []common.Hash
	DecryptedResult []byte
	ExtraData       []byte
}

// PublicDecryptTypedData builds the EIP-712 payload for a public decryption result.
func PublicDecryptTypedData(domain Domain, msg PublicDecryptVerification) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": eip712DomainType,
			"PublicDecryptVerification": {
				{Name: "ctHandles", Type: "bytes32[]"},
				{Name: "decryptedResult", Type: "bytes"},
				{Name: "extraData", Type: "bytes"},
			},
		},
		PrimaryType: "PublicDecryptVerification",
		Domain:      domain.typed("Decryption"),
		Message: apitypes.TypedDataMessage{
			"ctHandles":       hashList(msg.Handles),
			"decryptedResult": hexutil.Encode(msg.DecryptedResult),
			"extraData":       hexutil.Encode(msg.ExtraData),
		},
	}
}

func hashList(hashes []common.Hash) []interface{} {
	out := make([]interface{}, len(hashes))
	for i, h := range hashes {
		out[i] = h.Hex()
	}
	return out
}
