package relayer

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/relayer_sdk/pkg/signers"
)

// defaultExtraData is sent when a payload leaves ExtraData empty.
var defaultExtraData = hexutil.Bytes{0x00}

// Address is an account or contract address that always encodes in EIP-55 checksum
// form and only decodes from it.
type Address common.Address

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(common.Address(a).Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := signers.ParseChecksummedAddress(string(text))
	if err != nil {
		return err
	}
	*a = Address(addr)
	return nil
}

func (a Address) String() string { return common.Address(a).Hex() }

// Common returns a as a go-ethereum address.
func (a Address) Common() common.Address { return common.Address(a) }

// InputProofPayload asks the coprocessors to verify an encrypted input.
type InputProofPayload struct {
	ContractAddress Address        `json:"contractAddress"`
	UserAddress     Address        `json:"userAddress"`
	Ciphertext      hexutil.Bytes  `json:"ciphertextWithInputVerification"`
	ContractChainID hexutil.Uint64 `json:"contractChainId"`
	ExtraData       hexutil.Bytes  `json:"extraData"`
}

// PublicDecryptPayload asks the KMS to publicly decrypt handles.
type PublicDecryptPayload struct {
	CiphertextHandles []common.Hash `json:"ciphertextHandles"`
	ExtraData         hexutil.Bytes `json:"extraData"`
}

// HandleContractPair binds a ciphertext handle to the contract allowed to use it.
type HandleContractPair struct {
	Handle          common.Hash `json:"handle"`
	ContractAddress Address     `json:"contractAddress"`
}

// RequestValidity is the window during which a user decryption signature is valid.
type RequestValidity struct {
	StartTimestamp uint64 `json:"startTimestamp,string"`
	DurationDays   uint64 `json:"durationDays,string"`
}

// UserDecryptPayload asks the KMS to re-encrypt handles under the user's public key.
type UserDecryptPayload struct {
	HandleContractPairs []HandleContractPair `json:"handleContractPairs"`
	RequestValidity     RequestValidity      `json:"requestValidity"`
	ContractsChainID    hexutil.Uint64       `json:"contractsChainId"`
	ContractAddresses   []Address            `json:"contractAddresses"`
	UserAddress         Address              `json:"userAddress"`
	Signature           hexutil.Bytes        `json:"signature"`
	PublicKey           hexutil.Bytes        `json:"publicKey"`
	ExtraData           hexutil.Bytes        `json:"extraData"`
}

func (p InputProofPayload) withDefaults() InputProofPayload {
	if len(p.ExtraData) == 0 {
		p.ExtraData = defaultExtraData
	}
	return p
}

func (p PublicDecryptPayload) withDefaults() PublicDecryptPayload {
	if len(p.ExtraData) == 0 {
		p.ExtraData = defaultExtraData
	}
	return p
}

func (p UserDecryptPayload) withDefaults() UserDecryptPayload {
	if len(p.ExtraData) == 0 {
		p.ExtraData = defaultExtraData
	}
	return p
}

// InputProofResult is either accepted, with handles and coprocessor signatures, or
// rejected, with only ExtraData.
type InputProofResult struct {
	Accepted   bool            `json:"accepted"`
	Handles    []common.Hash   `json:"handles,omitempty"`
	Signatures []hexutil.Bytes `json:"signatures,omitempty"`
	ExtraData  hexutil.Bytes   `json:"extraData"`
}

// PublicDecryptResult carries the KMS signatures over the decrypted value.
type PublicDecryptResult struct {
	Signatures     []hexutil.Bytes `json:"signatures"`
	DecryptedValue hexutil.Bytes   `json:"decryptedValue"`
	ExtraData      hexutil.Bytes   `json:"extraData"`
}

// UserDecryptShare is one KMS signer's re-encrypted share.
type UserDecryptShare struct {
	Payload   hexutil.Bytes `json:"payload"`
	Signature hexutil.Bytes `json:"signature"`
}

// UserDecryptResult lists the shares returned for a user decryption.
type UserDecryptResult struct {
	Shares []UserDecryptShare `json:"result"`
}

// KeyRef locates a published key by id and download URLs.
type KeyRef struct {
	DataID string   `json:"dataId"`
	URLs   []string `json:"urls"`
}

// KeyURLResult lists the FHE public key and the CRS per bit size.
type KeyURLResult struct {
	FHEPublicKey KeyRef            `json:"fhePublicKey"`
	CRS          map[string]KeyRef `json:"crs"`
}

// resultDecoder narrows a succeeded envelope's result to T.
type resultDecoder[T any] func(result gjson.Result, name string) (T, error)

// decodeWith returns a decoder that asserts the result shape before unmarshaling it.
func decodeWith[T any](assert func(v gjson.Result, name, property string) error) resultDecoder[T] {
	return func(result gjson.Result, name string) (T, error) {
		var out T
		if err := assert(result, name, "result"); err != nil {
			return out, err
		}
		if err := json.Unmarshal([]byte(result.Raw), &out); err != nil {
			return out, fmt.Errorf("decode %s result: %w", name, err)
		}
		return out, nil
	}
}
