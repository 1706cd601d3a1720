package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

func TestProgramError_Codes(t *testing.T) {
	assert.EqualValues(t, 6000, ErrProtocolPaused)
	assert.EqualValues(t, 6020, ErrNonexistentAsset)
	assert.EqualValues(t, 6022, ErrDepositExceedsUserCap)
	assert.EqualValues(t, 6023, ErrAssetCapExceeded)
	assert.Len(t, programErrorNames, 38)

	assert.Equal(t, "vault program error: DepositExceedsUserCap (0x1786)", ErrDepositExceedsUserCap.Error())
	assert.Equal(t, "vault program error: 0x1", ProgramError(1).Error())
}

func TestParseProgramError(t *testing.T) {
	txErr, err := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: 1,
		Err:   ErrAssetCapExceeded.ToCustomError(),
	})
	require.NoError(t, err)

	parsed := ParseProgramError(txErr)
	require.NotNil(t, parsed)
	assert.Equal(t, ErrAssetCapExceeded, *parsed)

	// Token program insufficient funds
	txErr, err = solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: 1,
		Err:   solana.CustomError(1),
	})
	require.NoError(t, err)
	assert.Nil(t, ParseProgramError(txErr))

	assert.Nil(t, ParseProgramError(solana.NewTransactionError(solana.TransactionErrorAccountNotFound)))
	assert.Nil(t, ParseProgramError(nil))
}
