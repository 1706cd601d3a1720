package vault

import "bytes"

type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota

	InstructionTypeInitializeGlobalProtocolState
	InstructionTypeInitializeSaberStrategy
	InstructionTypeInitializeOrcaStrategy
	InstructionTypeInitializeVault

	InstructionTypeDeposit
	InstructionTypeInvestSaber
	InstructionTypeInvestOrca
	InstructionTypeProcessClaims
	InstructionTypeClaim
	InstructionTypeRedeemSaber
	InstructionTypeRedeemOrca
	InstructionTypeWithdraw

	InstructionTypeInitializeUserFarmOrca
	InstructionTypeConvertOrcaLp
	InstructionTypeHarvestOrca
	InstructionTypeRevertOrcaLp
	InstructionTypeSwapOrca
)

var instructionTypesByDiscriminator = []struct {
	discriminator   []byte
	instructionType InstructionType
}{
	{initializeGlobalProtocolStateInstructionDiscriminator, InstructionTypeInitializeGlobalProtocolState},
	{initializeSaberStrategyInstructionDiscriminator, InstructionTypeInitializeSaberStrategy},
	{initializeOrcaStrategyInstructionDiscriminator, InstructionTypeInitializeOrcaStrategy},
	{initializeVaultInstructionDiscriminator, InstructionTypeInitializeVault},
	{depositInstructionDiscriminator, InstructionTypeDeposit},
	{investSaberInstructionDiscriminator, InstructionTypeInvestSaber},
	{investOrcaInstructionDiscriminator, InstructionTypeInvestOrca},
	{processClaimsInstructionDiscriminator, InstructionTypeProcessClaims},
	{claimInstructionDiscriminator, InstructionTypeClaim},
	{redeemSaberInstructionDiscriminator, InstructionTypeRedeemSaber},
	{redeemOrcaInstructionDiscriminator, InstructionTypeRedeemOrca},
	{withdrawInstructionDiscriminator, InstructionTypeWithdraw},
	{initializeUserFarmOrcaInstructionDiscriminator, InstructionTypeInitializeUserFarmOrca},
	{convertOrcaLpInstructionDiscriminator, InstructionTypeConvertOrcaLp},
	{harvestOrcaInstructionDiscriminator, InstructionTypeHarvestOrca},
	{revertOrcaLpInstructionDiscriminator, InstructionTypeRevertOrcaLp},
	{swapOrcaInstructionDiscriminator, InstructionTypeSwapOrca},
}

// GetInstructionType identifies a vault instruction by its discriminator.
func GetInstructionType(data []byte) InstructionType {
	if len(data) < 8 {
		return InstructionTypeUnknown
	}

	for _, candidate := range instructionTypesByDiscriminator {
		if bytes.Equal(data[:8], candidate.discriminator) {
			return candidate.instructionType
		}
	}
	return InstructionTypeUnknown
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitializeGlobalProtocolState:
		return "initialize_global_protocol_state"
	case InstructionTypeInitializeSaberStrategy:
		return "initialize_saber"
	case InstructionTypeInitializeOrcaStrategy:
		return "initialize_orca"
	case InstructionTypeInitializeVault:
		return "initialize_vault"
	case InstructionTypeDeposit:
		return "deposit"
	case InstructionTypeInvestSaber:
		return "invest_saber"
	case InstructionTypeInvestOrca:
		return "invest_orca"
	case InstructionTypeProcessClaims:
		return "process_claims"
	case InstructionTypeClaim:
		return "claim"
	case InstructionTypeRedeemSaber:
		return "redeem_saber"
	case InstructionTypeRedeemOrca:
		return "redeem_orca"
	case InstructionTypeWithdraw:
		return "withdraw"
	case InstructionTypeInitializeUserFarmOrca:
		return "initialize_user_farm_orca"
	case InstructionTypeConvertOrcaLp:
		return "convert_orca_lp"
	case InstructionTypeHarvestOrca:
		return "harvest_orca"
	case InstructionTypeRevertOrcaLp:
		return "revert_orca_lp"
	case InstructionTypeSwapOrca:
		return "swap_orca"
	}
	return "unknown"
}
