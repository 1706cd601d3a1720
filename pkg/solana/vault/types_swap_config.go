package vault

import "fmt"

const (
	SwapConfigSize = (8 + // max_in
		8 + // min_out
		1) // alpha_to_beta

	MaxOptionalSwapConfigSize = 1 + SwapConfigSize
)

// SwapConfig describes the rebalancing swap executed during redemption.
type SwapConfig struct {
	MaxIn       uint64
	MinOut      uint64
	AlphaToBeta bool
}

func putOptionalSwapConfig(dst []byte, v *SwapConfig, offset *int) {
	if v == nil {
		putBool(dst, false, offset)
		return
	}
	putBool(dst, true, offset)
	putUint64(dst, v.MaxIn, offset)
	putUint64(dst, v.MinOut, offset)
	putBool(dst, v.AlphaToBeta, offset)
}
func getOptionalSwapConfig(src []byte, dst **SwapConfig, offset *int) {
	var isSet bool
	getBool(src, &isSet, offset)
	if !isSet {
		*dst = nil
		return
	}

	var v SwapConfig
	getUint64(src, &v.MaxIn, offset)
	getUint64(src, &v.MinOut, offset)
	getBool(src, &v.AlphaToBeta, offset)
	*dst = &v
}

func (obj *SwapConfig) String() string {
	if obj == nil {
		return "SwapConfig{<nil>}"
	}
	return fmt.Sprintf(
		"SwapConfig{max_in=%d,min_out=%d,alpha_to_beta=%v}",
		obj.MaxIn,
		obj.MinOut,
		obj.AlphaToBeta,
	)
}
