package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"duel-reward-system/models"
	"duel-reward-system/storage/memory"
)

type InviteRewardSuite struct {
	suite.Suite
	store     *memory.Storage
	messenger *fakeMessenger
	ledger    *InviteRewardLedger
}

func TestInviteRewardSuite(t *testing.T) {
	suite.Run(t, new(InviteRewardSuite))
}

func (s *InviteRewardSuite) SetupTest() {
	s.store = memory.New()
	s.messenger = &fakeMessenger{}
	s.ledger = NewInviteRewardLedger(s.store, s.messenger)
}

func (s *InviteRewardSuite) seed(acc *models.Account) {
	s.Require().NoError(s.store.CreateAccountIfAbsent(acc))
}

// seedPair registers an inviter and an invitee who is authorized and has
// played once, i.e. fully eligible.
func (s *InviteRewardSuite) seedPair() (inviterID, inviteeID int64) {
	s.seed(testAccount(10, "+15550010", 0, 0, false, nil))
	s.seed(testAccount(20, "+15550020", 0, 1, false, int64Ptr(10)))
	return 10, 20
}

func (s *InviteRewardSuite) inviterPoints(id int64) int64 {
	acc, err := s.store.Account(id)
	s.Require().NoError(err)
	return acc.Points
}

func (s *InviteRewardSuite) TestUnknownInvitee() {
	status, err := s.ledger.Evaluate(999)
	s.Require().NoError(err)
	s.Equal(GrantNotEligible, status)
}

func (s *InviteRewardSuite) TestNoInviter() {
	s.seed(testAccount(1, "+15550001", 0, 1, false, nil))
	status, err := s.ledger.Evaluate(1)
	s.Require().NoError(err)
	s.Equal(GrantNotEligible, status)
}

func (s *InviteRewardSuite) TestInviteeNotAuthorized() {
	s.seed(testAccount(10, "+15550010", 0, 0, false, nil))
	s.seed(testAccount(2, "", 0, 1, false, int64Ptr(10)))

	status, err := s.ledger.Evaluate(2)
	s.Require().NoError(err)
	s.Equal(GrantNotEligible, status)
	s.Equal(int64(0), s.inviterPoints(10))
}

func (s *InviteRewardSuite) TestInviteeHasNotPlayed() {
	s.seed(testAccount(10, "+15550010", 0, 0, false, nil))
	s.seed(testAccount(3, "+15550003", 0, 0, false, int64Ptr(10)))

	status, err := s.ledger.Evaluate(3)
	s.Require().NoError(err)
	s.Equal(GrantNotEligible, status)
	s.Equal(int64(0), s.inviterPoints(10))
}

func (s *InviteRewardSuite) TestAwardsExactlyOnce() {
	inviterID, inviteeID := s.seedPair()

	status, err := s.ledger.Evaluate(inviteeID)
	s.Require().NoError(err)
	s.Equal(GrantAwarded, status)
	s.Equal(int64(ReferralBonusPoints), s.inviterPoints(inviterID))
	s.Len(s.messenger.sentTexts(), 1)

	grant, err := s.store.Grant(inviterID, inviteeID)
	s.Require().NoError(err)
	s.Require().NotNil(grant)
	s.True(grant.Granted)
	s.NotNil(grant.GrantedAt)

	// Redundant evaluations change nothing.
	status, err = s.ledger.Evaluate(inviteeID)
	s.Require().NoError(err)
	s.Equal(GrantAlreadyGranted, status)
	s.Equal(int64(ReferralBonusPoints), s.inviterPoints(inviterID))
	s.Len(s.messenger.sentTexts(), 1)
}

func (s *InviteRewardSuite) TestParallelEvaluationsSingleCredit() {
	inviterID, inviteeID := s.seedPair()

	const evaluators = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	awarded := 0

	for i := 0; i < evaluators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := s.ledger.Evaluate(inviteeID)
			s.NoError(err)
			if status == GrantAwarded {
				mu.Lock()
				awarded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, awarded)
	s.Equal(int64(ReferralBonusPoints), s.inviterPoints(inviterID))

	grant, err := s.store.Grant(inviterID, inviteeID)
	s.Require().NoError(err)
	s.Require().NotNil(grant)
	s.True(grant.Granted)
}

func (s *InviteRewardSuite) TestNotificationFailureDoesNotUnwind() {
	inviterID, inviteeID := s.seedPair()
	s.messenger.textErr = errors.New("gateway unreachable")

	status, err := s.ledger.Evaluate(inviteeID)
	s.Require().NoError(err)
	s.Equal(GrantAwarded, status)
	s.Equal(int64(ReferralBonusPoints), s.inviterPoints(inviterID))

	grant, grantErr := s.store.Grant(inviterID, inviteeID)
	s.Require().NoError(grantErr)
	s.Require().NotNil(grant)
	s.True(grant.Granted)
}
