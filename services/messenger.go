package services

// Messenger is the narrow slice of the chat platform the game services
// consume. The full client lives in the telegram package; services only
// need to push text and roll dice. Failures never unwind committed state.
type Messenger interface {
	SendText(chatID int64, text string) error
	// SendDice asks the platform to roll and returns the rolled value.
	SendDice(chatID int64) (int, error)
}
