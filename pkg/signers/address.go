package signers

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseChecksummedAddress parses an EIP-55 checksummed address. All-lowercase or
// wrongly-cased input is rejected.
func ParseChecksummedAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) || !strings.HasPrefix(s, "0x") {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	if addr.Hex() != s {
		return common.Address{}, fmt.Errorf("address %q is not checksummed", s)
	}
	return addr, nil
}

// ParseChecksummedAddresses parses every entry of list.
func ParseChecksummedAddresses(list []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(list))
	for _, s := range list {
		addr, err := ParseChecksummedAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
