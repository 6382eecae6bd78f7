package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duel-reward-system/models"
	"duel-reward-system/storage"
)

func seed(t *testing.T, s *Storage, acc *models.Account) {
	t.Helper()
	require.NoError(t, s.CreateAccountIfAbsent(acc))
}

func account(userID int64) *models.Account {
	return &models.Account{UserID: userID}
}

func TestCreateAccountIfAbsent(t *testing.T) {
	s := New()

	first := account(1)
	first.Points = 5
	seed(t, s, first)

	// Second create is a no-op; the original row survives.
	again := account(1)
	again.Points = 999
	require.NoError(t, s.CreateAccountIfAbsent(again))

	acc, err := s.Account(1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), acc.Points)
}

func TestSelfInviteStoredAsNil(t *testing.T) {
	s := New()

	acc := account(7)
	self := int64(7)
	acc.InvitedBy = &self
	seed(t, s, acc)

	got, err := s.Account(7)
	require.NoError(t, err)
	assert.Nil(t, got.InvitedBy)
}

func TestSetPhoneToken(t *testing.T) {
	s := New()
	seed(t, s, account(1))

	require.NoError(t, s.SetPhoneToken(1, "+15550001"))
	acc, err := s.Account(1)
	require.NoError(t, err)
	assert.True(t, acc.Authorized())

	assert.ErrorIs(t, s.SetPhoneToken(2, "+15550002"), storage.ErrAccountNotFound)
}

func TestApplyPlayResult(t *testing.T) {
	s := New()
	seed(t, s, account(1))

	now := time.Now()
	total, err := s.ApplyPlayResult(1, 10, 10, now)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	total, err = s.ApplyPlayResult(1, -5, 10, now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	acc, err := s.Account(1)
	require.NoError(t, err)
	assert.Equal(t, 2, acc.Plays)
	require.NotNil(t, acc.LastPlay)

	_, err = s.ApplyPlayResult(99, 10, 10, now)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestApplyPlayResultQuotaGuard(t *testing.T) {
	s := New()
	acc := account(1)
	acc.Plays = 10
	seed(t, s, acc)

	_, err := s.ApplyPlayResult(1, 10, 10, time.Now())
	assert.ErrorIs(t, err, storage.ErrQuotaExhausted)

	got, err := s.Account(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Points)
	assert.Equal(t, 10, got.Plays)
}

func TestApplyPlayResultConcurrent(t *testing.T) {
	s := New()
	seed(t, s, account(1))

	const attempts = 50
	const quota = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ApplyPlayResult(1, 1, quota, time.Now()); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, quota, succeeded)

	acc, err := s.Account(1)
	require.NoError(t, err)
	assert.Equal(t, quota, acc.Plays)
	assert.Equal(t, int64(quota), acc.Points) // no lost updates
}

func TestResetAllPlays(t *testing.T) {
	s := New()
	a := account(1)
	a.Plays = 10
	a.Points = 33
	seed(t, s, a)

	require.NoError(t, s.ResetAllPlays())
	require.NoError(t, s.ResetAllPlays())

	acc, err := s.Account(1)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.Plays)
	assert.Equal(t, int64(33), acc.Points)
}

func TestGrantUniqueness(t *testing.T) {
	s := New()

	g := &models.InviteRewardGrant{InviterID: 1, InviteeID: 2}
	require.NoError(t, s.CreateGrant(g))

	dup := &models.InviteRewardGrant{InviterID: 1, InviteeID: 2}
	assert.ErrorIs(t, s.CreateGrant(dup), storage.ErrGrantExists)

	// A different pair is fine.
	other := &models.InviteRewardGrant{InviterID: 1, InviteeID: 3}
	require.NoError(t, s.CreateGrant(other))
}

func TestClaimGrantSingleWinner(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateGrant(&models.InviteRewardGrant{InviterID: 1, InviteeID: 2}))

	const claimers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimGrant(1, 2, time.Now())
			assert.NoError(t, err)
			if claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)

	g, err := s.Grant(1, 2)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.True(t, g.Granted)
	assert.NotNil(t, g.GrantedAt)
}

func TestClaimGrantMissingPair(t *testing.T) {
	s := New()
	claimed, err := s.ClaimGrant(1, 2, time.Now())
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestStats(t *testing.T) {
	s := New()

	authorized := account(1)
	phone := "+15550001"
	authorized.Phone = &phone
	authorized.Points = 10
	seed(t, s, authorized)

	blocked := account(2)
	blocked.Blocked = true
	blocked.Points = -5
	seed(t, s, blocked)

	seed(t, s, account(3))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.AuthorizedUsers)
	assert.Equal(t, int64(1), stats.BlockedUsers)
	assert.Equal(t, int64(5), stats.TotalPoints)
}

func TestListAccountsKeywordAndPaging(t *testing.T) {
	s := New()

	for i := int64(1); i <= 5; i++ {
		acc := account(i)
		name := "player"
		if i == 3 {
			name = "special"
		}
		acc.Username = &name
		acc.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		seed(t, s, acc)
	}

	rows, total, err := s.ListAccounts("ECIAL", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].UserID)

	rows, total, err = s.ListAccounts("", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, rows, 2)
}

func TestHistoryAppendAndList(t *testing.T) {
	s := New()

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendHistory(&models.GameHistoryEntry{
			UserID:     1,
			PlayerRoll: 6,
			BotRoll:    1,
			Outcome:    models.OutcomeWin,
			PointDelta: 10,
			PlayedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.AppendHistory(&models.GameHistoryEntry{
		UserID:   2,
		Outcome:  models.OutcomeDraw,
		PlayedAt: base,
	}))

	userID := int64(1)
	entries, total, err := s.ListHistory(&userID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 3)
	// Newest first.
	assert.True(t, entries[0].PlayedAt.After(entries[1].PlayedAt))

	window, err := s.HistoryBetween(base.Add(30*time.Second), base.Add(90*time.Second))
	require.NoError(t, err)
	assert.Len(t, window, 1)
}
