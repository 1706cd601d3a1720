package solana

import (
	"bytes"
	"crypto/ed25519"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_SingleInstruction(t *testing.T) {
	keys := generateKeys(t, 2)
	payer := keys[0]
	program := keys[1]

	keys = generateSortedKeys(t, 4)
	data := []byte{1, 2, 3}

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program),
			data,
			NewReadonlyAccountMeta(public(keys[0]), true),
			NewReadonlyAccountMeta(public(keys[1]), false),
			NewAccountMeta(public(keys[2]), false),
			NewAccountMeta(public(keys[3]), true),
		),
	)

	// Signing order doesn't affect signature placement
	require.NoError(t, tx.Sign(keys[0], keys[3], payer))

	require.Len(t, tx.Signatures, 3)
	require.Len(t, tx.Message.Accounts, 6)
	assert.EqualValues(t, 3, tx.Message.Header.NumSignatures)
	assert.EqualValues(t, 1, tx.Message.Header.NumReadonlySigned)
	assert.EqualValues(t, 2, tx.Message.Header.NumReadOnly)

	message := tx.Message.Marshal()
	assert.True(t, ed25519.Verify(public(payer), message, tx.Signatures[0][:]))
	assert.True(t, ed25519.Verify(public(keys[3]), message, tx.Signatures[1][:]))
	assert.True(t, ed25519.Verify(public(keys[0]), message, tx.Signatures[2][:]))
	assert.Equal(t, tx.Signatures[0][:], tx.Signature())

	expectedAccounts := []ed25519.PublicKey{
		public(payer),
		public(keys[3]),
		public(keys[0]),
		public(keys[2]),
		public(keys[1]),
		public(program),
	}
	assert.Equal(t, expectedAccounts, tx.Message.Accounts)

	require.Len(t, tx.Message.Instructions, 1)
	assert.EqualValues(t, 5, tx.Message.Instructions[0].ProgramIndex)
	assert.Equal(t, data, tx.Message.Instructions[0].Data)
	assert.Equal(t, []byte{2, 4, 3, 1}, tx.Message.Instructions[0].Accounts)
}

func TestTransaction_DuplicateKeysArePromoted(t *testing.T) {
	keys := generateKeys(t, 2)
	payer := keys[0]
	program := keys[1]

	keys = generateSortedKeys(t, 4)

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program),
			nil,
			NewReadonlyAccountMeta(public(keys[0]), true),
			NewReadonlyAccountMeta(public(keys[1]), false),
			NewAccountMeta(public(keys[2]), false),
			NewAccountMeta(public(keys[3]), true),
			NewAccountMeta(public(keys[0]), false),
			NewReadonlyAccountMeta(public(keys[1]), true),
			NewReadonlyAccountMeta(public(keys[2]), false),
			NewReadonlyAccountMeta(public(keys[3]), false),
		),
	)
	require.NoError(t, tx.Sign(keys[1], keys[3], payer, keys[0]))

	require.Len(t, tx.Signatures, 4)
	assert.EqualValues(t, 4, tx.Message.Header.NumSignatures)
	assert.EqualValues(t, 1, tx.Message.Header.NumReadonlySigned)
	assert.EqualValues(t, 1, tx.Message.Header.NumReadOnly)

	expectedAccounts := []ed25519.PublicKey{
		public(payer),
		public(keys[0]),
		public(keys[3]),
		public(keys[1]),
		public(keys[2]),
		public(program),
	}
	assert.Equal(t, expectedAccounts, tx.Message.Accounts)
	assert.Equal(t, []byte{1, 3, 4, 2, 1, 3, 4, 2}, tx.Message.Instructions[0].Accounts)

	message := tx.Message.Marshal()
	for i, key := range []ed25519.PrivateKey{payer, keys[0], keys[3], keys[1]} {
		assert.True(t, ed25519.Verify(public(key), message, tx.Signatures[i][:]))
	}
}

func TestTransaction_SharedProgram(t *testing.T) {
	keys := generateKeys(t, 3)
	payer := keys[0]
	program := keys[1]
	account := keys[2]

	tx := NewTransaction(
		public(payer),
		NewInstruction(public(program), []byte{1}, NewAccountMeta(public(account), false)),
		NewInstruction(public(program), []byte{2}, NewReadonlyAccountMeta(public(account), false)),
	)

	require.Len(t, tx.Message.Accounts, 3)
	require.Len(t, tx.Message.Instructions, 2)
	for _, instruction := range tx.Message.Instructions {
		assert.EqualValues(t, 2, instruction.ProgramIndex)
		assert.Equal(t, []byte{1}, instruction.Accounts)
	}
	assert.EqualValues(t, 1, tx.Message.Header.NumReadOnly)
}

func TestTransaction_MarshalRoundTrip(t *testing.T) {
	keys := generateKeys(t, 4)
	payer := keys[0]

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(keys[1]),
			[]byte{0xde, 0xad, 0xbe, 0xef},
			NewAccountMeta(public(keys[2]), true),
			NewReadonlyAccountMeta(public(keys[3]), false),
		),
		NewInstruction(public(keys[1]), nil),
	)

	var blockhash Blockhash
	copy(blockhash[:], public(keys[3]))
	tx.SetBlockhash(blockhash)
	require.NoError(t, tx.Sign(payer, keys[2]))

	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(tx.Marshal()))
	assert.Equal(t, tx.Signatures, decoded.Signatures)
	assert.Equal(t, tx.Message.Header, decoded.Message.Header)
	assert.Equal(t, tx.Message.Accounts, decoded.Message.Accounts)
	assert.Equal(t, blockhash, decoded.Message.RecentBlockhash)
	assert.Equal(t, tx.Marshal(), decoded.Marshal())

	require.Len(t, decoded.Message.Instructions, 2)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, decoded.Message.Instructions[0].Data)
	assert.Empty(t, decoded.Message.Instructions[1].Data)
	assert.Empty(t, decoded.Message.Instructions[1].Accounts)
}

func TestTransaction_EmptyAccount(t *testing.T) {
	keys := generateKeys(t, 2)

	tx := NewTransaction(
		public(keys[0]),
		NewInstruction(public(keys[1]), []byte{1, 2, 3}, NewAccountMeta(nil, false)),
	)
	require.NoError(t, tx.Sign(keys[0]))

	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(tx.Marshal()))
	assert.Equal(t, make([]byte, ed25519.PublicKeySize), []byte(decoded.Message.Accounts[1]))
}

func TestTransaction_InvalidIndexes(t *testing.T) {
	keys := generateKeys(t, 2)
	build := func() Transaction {
		return NewTransaction(
			public(keys[0]),
			NewInstruction(public(keys[1]), nil, NewAccountMeta(public(keys[0]), true)),
		)
	}

	var decoded Transaction

	tx := build()
	tx.Message.Instructions[0].ProgramIndex = 2
	assert.Error(t, decoded.Unmarshal(tx.Marshal()))

	tx = build()
	tx.Message.Instructions[0].Accounts = []byte{2}
	assert.Error(t, decoded.Unmarshal(tx.Marshal()))
}

func TestMessage_Unmarshal_Rejected(t *testing.T) {
	keys := generateKeys(t, 2)
	tx := NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), nil))

	var m Message
	assert.Error(t, m.Unmarshal(nil))
	assert.Error(t, m.Unmarshal(append([]byte{0x80}, tx.Message.Marshal()...)))

	truncated := tx.Message.Marshal()
	assert.Error(t, m.Unmarshal(truncated[:len(truncated)-1]))
}

func TestTransaction_Sign_UnknownSigner(t *testing.T) {
	keys := generateKeys(t, 3)
	tx := NewTransaction(
		public(keys[0]),
		NewInstruction(public(keys[1]), nil, NewAccountMeta(public(keys[2]), false)),
	)

	// Not an account
	assert.Error(t, tx.Sign(generateKeys(t, 1)[0]))

	// An account, but not a signer
	assert.Error(t, tx.Sign(keys[2]))
}

func TestTransaction_CheckSize(t *testing.T) {
	keys := generateKeys(t, 2)

	tx := NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), make([]byte, 256)))
	assert.NoError(t, tx.CheckSize())
	assert.Less(t, tx.Size(), MaxTransactionSize)

	tx = NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), make([]byte, MaxTransactionSize)))
	assert.Greater(t, tx.Size(), MaxTransactionSize)
	assert.ErrorIs(t, tx.CheckSize(), ErrTransactionTooLarge)
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}

func generateKeys(t *testing.T, amount int) []ed25519.PrivateKey {
	keys := make([]ed25519.PrivateKey, amount)

	for i := 0; i < amount; i++ {
		_, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = priv
	}

	return keys
}

func generateSortedKeys(t *testing.T, amount int) []ed25519.PrivateKey {
	keys := generateKeys(t, amount)
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(public(keys[i]), public(keys[j])) < 0
	})
	return keys
}
