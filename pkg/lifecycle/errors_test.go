package lifecycle

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

func TestClassifySubmitError(t *testing.T) {
	assert.NoError(t, classifySubmitError(nil))

	inUse, err := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: 2,
		Err:   solana.CustomError(0),
	})
	require.NoError(t, err)

	classified := classifySubmitError(errors.Wrap(inUse, "error submitting transaction"))
	assert.ErrorIs(t, classified, ErrRetryable)

	var txErr *solana.TransactionError
	assert.True(t, errors.As(classified, &txErr))

	programErr, err := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: 2,
		Err:   solana.CustomError(0x1770),
	})
	require.NoError(t, err)

	classified = classifySubmitError(programErr)
	assert.NotErrorIs(t, classified, ErrRetryable)
	assert.Equal(t, programErr, classified)

	other := errors.New("connection refused")
	assert.Equal(t, other, classifySubmitError(other))
}
