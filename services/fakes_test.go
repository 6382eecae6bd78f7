package services

import (
	"sync"

	"duel-reward-system/models"
)

// fakeMessenger records outbound traffic and serves queued dice values.
type fakeMessenger struct {
	mu sync.Mutex

	texts     []string
	textChats []int64
	textErr   error

	diceQueue []int
	diceCalls int
	diceErr   error
}

func (f *fakeMessenger) SendText(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return f.textErr
	}
	f.texts = append(f.texts, text)
	f.textChats = append(f.textChats, chatID)
	return nil
}

// SendDice pops the next queued value, defaulting to 1 when the queue is
// empty so concurrent tests always draw.
func (f *fakeMessenger) SendDice(chatID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.diceErr != nil {
		return 0, f.diceErr
	}
	f.diceCalls++
	if len(f.diceQueue) == 0 {
		return 1, nil
	}
	v := f.diceQueue[0]
	f.diceQueue = f.diceQueue[1:]
	return v, nil
}

func (f *fakeMessenger) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

func (f *fakeMessenger) sentDiceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diceCalls
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func testAccount(userID int64, phone string, points int64, plays int, blocked bool, invitedBy *int64) *models.Account {
	acc := &models.Account{
		UserID:    userID,
		Username:  strPtr("user"),
		Points:    points,
		Plays:     plays,
		Blocked:   blocked,
		InvitedBy: invitedBy,
	}
	if phone != "" {
		acc.Phone = &phone
	}
	return acc
}
