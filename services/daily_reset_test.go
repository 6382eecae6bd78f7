package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"duel-reward-system/storage/memory"
)

func TestDailyResetIdempotent(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateAccountIfAbsent(testAccount(1, "+15550001", 42, 10, false, nil)))
	require.NoError(t, store.CreateAccountIfAbsent(testAccount(2, "+15550002", -3, 4, false, nil)))

	reset := NewDailyResetService(store)

	for i := 0; i < 2; i++ {
		require.NoError(t, reset.Run())

		acc1, err := store.Account(1)
		require.NoError(t, err)
		require.Equal(t, 0, acc1.Plays)
		require.Equal(t, int64(42), acc1.Points)

		acc2, err := store.Account(2)
		require.NoError(t, err)
		require.Equal(t, 0, acc2.Plays)
		require.Equal(t, int64(-3), acc2.Points)
	}
}
