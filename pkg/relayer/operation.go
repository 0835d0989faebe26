package relayer

import "fmt"

// Operation identifies the kind of job submitted to the relayer. Each operation has
// exactly one result shape.
type Operation string

const (
	OpInputProof    Operation = "input-proof"
	OpPublicDecrypt Operation = "public-decrypt"
	OpUserDecrypt   Operation = "user-decrypt"
	// OpKeyURL is a single GET without a job.
	OpKeyURL Operation = "keyurl"
)

// Path returns the endpoint path of the operation relative to the relayer base URL.
func (o Operation) Path() string {
	return "/v2/" + string(o)
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	switch o {
	case OpInputProof, OpPublicDecrypt, OpUserDecrypt, OpKeyURL:
		return true
	}
	return false
}

func (o Operation) responseName() string {
	switch o {
	case OpInputProof:
		return "InputProofResponse"
	case OpPublicDecrypt:
		return "PublicDecryptResponse"
	case OpUserDecrypt:
		return "UserDecryptResponse"
	case OpKeyURL:
		return "KeyURLResponse"
	default:
		return fmt.Sprintf("Response(%s)", string(o))
	}
}
