package vault

// StrategyFlag identifies the liquidity venue a strategy invests through.
type StrategyFlag uint64

const (
	StrategyFlagSaber StrategyFlag = 1 << 0
	StrategyFlagOrca  StrategyFlag = 1 << 1
)

func (f StrategyFlag) String() string {
	switch f {
	case StrategyFlagSaber:
		return "saber"
	case StrategyFlagOrca:
		return "orca"
	}
	return "unknown"
}

func (f StrategyFlag) Validate() error {
	switch f {
	case StrategyFlagSaber, StrategyFlagOrca:
		return nil
	}
	return ErrInvalidStrategyFlag
}

type StrategyVersion uint16

const (
	StrategyVersionSaberLpV0 StrategyVersion = iota
	StrategyVersionOrcaLpV0
)

// DefaultVersion returns the version a new strategy of this flag is created
// with.
func (f StrategyFlag) DefaultVersion() StrategyVersion {
	if f == StrategyFlagOrca {
		return StrategyVersionOrcaLpV0
	}
	return StrategyVersionSaberLpV0
}
