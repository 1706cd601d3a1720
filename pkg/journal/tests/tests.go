package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/tranche-vault/pkg/database/query"
	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

func RunTests(t *testing.T, s journal.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s journal.Store){
		testRoundTrip,
		testDuplicateSignature,
		testGetAllByVault,
		testCountByOperation,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s journal.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now().Add(-time.Second)

		record := &journal.Record{
			EventId:   uuid.New(),
			Signature: "sig1",
			Operation: journal.OperationDeposit,
			Vault:     "vault1",
			Mint:      "mint1",
			Owner:     "owner1",
			Amount:    20_000_000,
			State:     vault.StateDeposit,
		}
		cloned := record.Clone()

		_, err := s.GetBySignature(ctx, record.Signature)
		assert.Equal(t, journal.ErrNotFound, err)

		require.NoError(t, s.Put(ctx, record))
		assert.True(t, record.Id > 0)
		assert.True(t, record.CreatedAt.After(start))

		actual, err := s.GetBySignature(ctx, cloned.Signature)
		require.NoError(t, err)
		assert.Equal(t, record.Id, actual.Id)
		assert.Equal(t, cloned.EventId, actual.EventId)
		assertEquivalentRecords(t, record, actual)
	})
}

func testDuplicateSignature(t *testing.T, s journal.Store) {
	t.Run("testDuplicateSignature", func(t *testing.T) {
		ctx := context.Background()

		record := &journal.Record{
			EventId:   uuid.New(),
			Signature: "sig1",
			Operation: journal.OperationInvest,
			Vault:     "vault1",
			State:     vault.StateLive,
		}
		require.NoError(t, s.Put(ctx, record))

		duplicate := &journal.Record{
			EventId:   uuid.New(),
			Signature: "sig1",
			Operation: journal.OperationRedeem,
			Vault:     "vault1",
			State:     vault.StateRedeem,
		}
		assert.Equal(t, journal.ErrExists, s.Put(ctx, duplicate))

		actual, err := s.GetBySignature(ctx, "sig1")
		require.NoError(t, err)
		assert.Equal(t, journal.OperationInvest, actual.Operation)

		assert.Error(t, s.Put(ctx, &journal.Record{Signature: "sig2", Operation: journal.OperationInvest, Vault: "vault1"}))
	})
}

func testGetAllByVault(t *testing.T, s journal.Store) {
	t.Run("testGetAllByVault", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByVault(ctx, "vault1", query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, journal.ErrNotFound, err)

		var expected []*journal.Record
		for i := 0; i < 5; i++ {
			for _, v := range []string{"vault1", "vault2"} {
				record := &journal.Record{
					EventId:   uuid.New(),
					Signature: fmt.Sprintf("sig-%s-%d", v, i),
					Operation: journal.OperationDeposit,
					Vault:     v,
					Mint:      "mint",
					Owner:     fmt.Sprintf("owner%d", i),
					Amount:    uint64(i + 1),
					State:     vault.StateDeposit,
				}
				require.NoError(t, s.Put(ctx, record))
				if v == "vault1" {
					expected = append(expected, record)
				}
			}
		}

		actual, err := s.GetAllByVault(ctx, "vault1", query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assertEquivalentRecords(t, expected[i], record)
		}

		actual, err = s.GetAllByVault(ctx, "vault1", query.EmptyCursor, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assertEquivalentRecords(t, expected[4-i], record)
		}

		actual, err = s.GetAllByVault(ctx, "vault1", query.EmptyCursor, 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, expected[0], actual[0])
		assertEquivalentRecords(t, expected[1], actual[1])

		actual, err = s.GetAllByVault(ctx, "vault1", query.ToCursor(actual[1].Id), 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, expected[2], actual[0])
		assertEquivalentRecords(t, expected[3], actual[1])

		actual, err = s.GetAllByVault(ctx, "vault1", query.ToCursor(expected[2].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, expected[1], actual[0])
		assertEquivalentRecords(t, expected[0], actual[1])

		_, err = s.GetAllByVault(ctx, "vault1", query.ToCursor(expected[4].Id), 10, query.Ascending)
		assert.Equal(t, journal.ErrNotFound, err)
	})
}

func testCountByOperation(t *testing.T, s journal.Store) {
	t.Run("testCountByOperation", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.CountByOperation(ctx, "vault1", journal.OperationClaim)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		operations := []journal.Operation{
			journal.OperationClaim,
			journal.OperationClaim,
			journal.OperationProcessClaims,
			journal.OperationClaim,
		}
		for i, operation := range operations {
			require.NoError(t, s.Put(ctx, &journal.Record{
				EventId:   uuid.New(),
				Signature: fmt.Sprintf("sig%d", i),
				Operation: operation,
				Vault:     "vault1",
				State:     vault.StateLive,
			}))
		}
		require.NoError(t, s.Put(ctx, &journal.Record{
			EventId:   uuid.New(),
			Signature: "other",
			Operation: journal.OperationClaim,
			Vault:     "vault2",
			State:     vault.StateLive,
		}))

		count, err = s.CountByOperation(ctx, "vault1", journal.OperationClaim)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		count, err = s.CountByOperation(ctx, "vault1", journal.OperationProcessClaims)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		count, err = s.CountByOperation(ctx, "vault2", journal.OperationClaim)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *journal.Record) {
	assert.Equal(t, obj1.EventId, obj2.EventId)
	assert.Equal(t, obj1.Signature, obj2.Signature)
	assert.Equal(t, obj1.Operation, obj2.Operation)
	assert.Equal(t, obj1.Vault, obj2.Vault)
	assert.Equal(t, obj1.Mint, obj2.Mint)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.Amount, obj2.Amount)
	assert.Equal(t, obj1.State, obj2.State)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}
