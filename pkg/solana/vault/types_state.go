package vault

import (
	"github.com/pkg/errors"
)

// State is the vault lifecycle state. Values are ordered by time.
type State uint8

const (
	StateInactive State = iota
	StateDeposit
	StateLive
	StateRedeem
	StateWithdraw
)

const StateSize = 1

func putState(dst []byte, v State, offset *int) {
	putUint8(dst, uint8(v), offset)
}
func getState(src []byte, dst *State, offset *int) error {
	var tag uint8
	getUint8(src, &tag, offset)
	if tag > uint8(StateWithdraw) {
		return ErrInvalidAccountData
	}
	*dst = State(tag)
	return nil
}

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateDeposit:
		return "deposit"
	case StateLive:
		return "live"
	case StateRedeem:
		return "redeem"
	case StateWithdraw:
		return "withdraw"
	}
	return "unknown"
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for s := StateInactive; s <= StateWithdraw; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return StateInactive, errors.Errorf("unknown vault state %q", name)
}
