package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

// NativeDecimals is the decimal precision of every supported native currency.
const NativeDecimals uint8 = 18

// ParseAmount converts a human readable decimal amount into the token's
// smallest unit, scaled by decimals. The literal "max" (case-insensitive)
// yields the maximum uint256 and is used for unlimited approvals.
func ParseAmount(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("金额不能为空")
	}
	if strings.EqualFold(value, "max") {
		return new(big.Int).Set(math.MaxBig256), nil
	}
	if strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("金额不能为负数: %s", value)
	}

	whole, frac := value, ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole, frac = value[:idx], value[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("金额 %s 的小数位超过了代币精度 %d", value, decimals)
	}
	// Right-pad the fraction so whole+frac is the amount in smallest units.
	frac += strings.Repeat("0", int(decimals)-len(frac))

	amount, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("无法解析金额: %s", value)
	}
	return amount, nil
}

// FormatAmount renders a smallest-unit amount as a decimal string, trimming
// trailing fraction zeros.
func FormatAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	s := amount.String()
	if decimals == 0 {
		return s
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	split := len(s) - int(decimals)
	whole, frac := s[:split], strings.TrimRight(s[split:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
