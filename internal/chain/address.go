package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress accepts a 0x-prefixed hex address. All-lowercase and
// all-uppercase forms carry no checksum; a mixed-case address must match
// its EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex()[2:] != body {
		return common.Address{}, fmt.Errorf("address %q has an invalid checksum", s)
	}
	return addr, nil
}
