package business

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress 校验并返回 EIP-55 校验和格式的地址，账本中所有地址都按此格式存储
func ParseAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s).Hex(), nil
}

// addressOf 将已规范化的地址转回 common.Address
func addressOf(s string) common.Address {
	return common.HexToAddress(s)
}
