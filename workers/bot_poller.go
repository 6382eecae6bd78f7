// workers/bot_poller.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"duel-reward-system/models"
	"duel-reward-system/services"
	"duel-reward-system/storage"
	"duel-reward-system/telegram"
)

const startGameCallback = "start_game"

// BotPoller long-polls the chat platform and drives every player-facing
// flow: onboarding, phone authorization, duels, leaderboard and invite
// links. All game state changes go through the services; the poller only
// translates updates and formats replies.
type BotPoller struct {
	client      *telegram.Client
	store       storage.Store
	guard       *services.SessionGuard
	ledger      *services.InviteRewardLedger
	leaderboard *services.LeaderboardService

	botUsername string
	pollTimeout int
}

func NewBotPoller(
	client *telegram.Client,
	store storage.Store,
	guard *services.SessionGuard,
	ledger *services.InviteRewardLedger,
	leaderboard *services.LeaderboardService,
) *BotPoller {
	return &BotPoller{
		client:      client,
		store:       store,
		guard:       guard,
		ledger:      ledger,
		leaderboard: leaderboard,
		pollTimeout: 30,
	}
}

// Start resolves the bot identity and begins polling in the background.
func (w *BotPoller) Start(ctx context.Context) error {
	me, err := w.client.GetMe()
	if err != nil {
		return fmt.Errorf("failed to resolve bot identity: %w", err)
	}
	w.botUsername = me.Username
	log.Printf("🤖 Bot poller running as @%s", w.botUsername)
	go w.run(ctx)
	return nil
}

func (w *BotPoller) run(ctx context.Context) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️ Bot poller stopped")
			return
		default:
		}

		updates, err := w.client.GetUpdates(offset, w.pollTimeout)
		if err != nil {
			log.Printf("❌ Failed to fetch updates: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			w.dispatch(u)
		}
	}
}

func (w *BotPoller) dispatch(u telegram.Update) {
	switch {
	case u.CallbackQuery != nil:
		w.handleCallback(u.CallbackQuery)
	case u.ChatMember != nil:
		w.handleChatMember(u.ChatMember)
	case u.Message != nil:
		w.handleMessage(u.Message)
	}
}

func (w *BotPoller) handleMessage(m *telegram.Message) {
	if m.From == nil || m.From.IsBot {
		return
	}

	switch {
	case m.Contact != nil:
		w.handleContact(m)
	case m.Dice != nil:
		// The player threw their own dice; use its value as their roll.
		w.play(m.From, m.Chat.ID, &m.Dice.Value)
	case strings.HasPrefix(m.Text, "/start"):
		w.handleStart(m)
	case strings.HasPrefix(m.Text, "/rank"):
		w.handleRank(m.Chat.ID)
	case strings.HasPrefix(m.Text, "/share"):
		w.handleShare(m.From, m.Chat.ID)
	case m.Text != "" && (m.Chat.Type == "group" || m.Chat.Type == "supergroup"):
		w.handleGroupText(m)
	}
}

// handleStart registers the account on first contact. A numeric /start
// argument names the inviter; it only takes effect at creation and is
// ignored for existing accounts.
func (w *BotPoller) handleStart(m *telegram.Message) {
	from := m.From

	var invitedBy *int64
	fields := strings.Fields(m.Text)
	if len(fields) > 1 {
		if inviterID, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
			invitedBy = &inviterID
		}
	}

	acc := &models.Account{
		UserID:    from.ID,
		FirstName: optStr(from.FirstName),
		LastName:  optStr(from.LastName),
		Username:  optStr(from.Username),
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
	}
	if err := w.store.CreateAccountIfAbsent(acc); err != nil {
		log.Printf("Failed to register account %d: %v", from.ID, err)
		w.sendText(m.Chat.ID, "Something went wrong, please try again later.")
		return
	}

	keyboard := telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: "📱 Share phone number", RequestContact: true}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
	_, err := w.client.SendMessage(m.Chat.ID,
		"⚠️ To join the group game, please authorize your phone number first:", keyboard)
	if err != nil {
		log.Printf("Failed to send phone prompt to %d: %v", m.Chat.ID, err)
	}
}

func (w *BotPoller) handleContact(m *telegram.Message) {
	from := m.From
	phone := m.Contact.PhoneNumber

	err := w.store.SetPhoneToken(from.ID, phone)
	if errors.Is(err, storage.ErrAccountNotFound) {
		w.sendText(m.Chat.ID, "⚠️ You're not registered yet. Send /start first.")
		return
	}
	if err != nil {
		log.Printf("Failed to store phone for %d: %v", from.ID, err)
		w.sendText(m.Chat.ID, "Something went wrong, please try again later.")
		return
	}

	keyboard := telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "🎲 Start game", CallbackData: startGameCallback}},
		},
	}
	_, err = w.client.SendMessage(m.Chat.ID,
		"✅ Phone number authorized! Tap the button to start playing.", keyboard)
	if err != nil {
		log.Printf("Failed to send authorization confirmation to %d: %v", m.Chat.ID, err)
	}

	if _, err := w.ledger.Evaluate(from.ID); err != nil {
		log.Printf("invite reward evaluation failed for user %d: %v", from.ID, err)
	}
}

func (w *BotPoller) handleCallback(q *telegram.CallbackQuery) {
	if err := w.client.AnswerCallbackQuery(q.ID); err != nil {
		log.Printf("Failed to answer callback %s: %v", q.ID, err)
	}
	if q.Data != startGameCallback {
		return
	}

	chatID := q.From.ID
	if q.Message != nil {
		chatID = q.Message.Chat.ID
	}

	w.playFromPrompt(&q.From, chatID, q.Message)
}

// playFromPrompt runs a duel started by a button press. Rejections replace
// the prompt text in place; a completed duel removes the prompt so the
// result message stands on its own.
func (w *BotPoller) playFromPrompt(from *telegram.User, chatID int64, prompt *telegram.Message) {
	result, err := w.guard.Play(from.ID, chatID, nil)
	if err != nil {
		w.reportPlayError(from, chatID, prompt, err)
		return
	}
	if prompt != nil {
		if err := w.client.DeleteMessage(chatID, prompt.MessageID); err != nil {
			log.Printf("Failed to delete game prompt in %d: %v", chatID, err)
		}
	}
	w.announceResult(chatID, result)
}

func (w *BotPoller) reportPlayError(from *telegram.User, chatID int64, prompt *telegram.Message, err error) {
	text := "Something went wrong, please try again later."
	if reason, ok := services.AsRejection(err); ok {
		text = rejectionText(reason)
	} else {
		log.Printf("Play failed for user %d: %v", from.ID, err)
	}

	if prompt != nil {
		if editErr := w.client.EditMessageText(chatID, prompt.MessageID, text); editErr == nil {
			return
		}
	}
	w.sendText(chatID, text)
}

func (w *BotPoller) play(from *telegram.User, chatID int64, playerRoll *int) {
	result, err := w.guard.Play(from.ID, chatID, playerRoll)
	if err != nil {
		w.reportPlayError(from, chatID, nil, err)
		return
	}
	w.announceResult(chatID, result)
}

func (w *BotPoller) announceResult(chatID int64, result *services.PlayResult) {
	msg := fmt.Sprintf("🎲 You rolled %d, I rolled %d! ", result.PlayerRoll, result.BotRoll)
	switch result.Outcome {
	case models.OutcomeWin:
		msg += fmt.Sprintf("You won! +%d points.", result.PointDelta)
	case models.OutcomeLose:
		msg += fmt.Sprintf("You lost... %d points.", result.PointDelta)
	default:
		msg += "It's a draw!"
	}
	msg += fmt.Sprintf(" Current total: %d", result.TotalPoints)

	keyboard := telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "🎲 Play again", CallbackData: startGameCallback}},
		},
	}
	if _, err := w.client.SendMessage(chatID, msg, keyboard); err != nil {
		log.Printf("Failed to send duel result to %d: %v", chatID, err)
	}
}

func (w *BotPoller) handleRank(chatID int64) {
	rows, err := w.leaderboard.TopToday(10)
	if err != nil {
		log.Printf("Failed to fetch today leaderboard: %v", err)
		w.sendText(chatID, "Something went wrong, please try again later.")
		return
	}
	if len(rows) == 0 {
		w.sendText(chatID, "📭 No scores on today's leaderboard yet.")
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	b.WriteString("📊 Today's leaderboard:\n")
	for i, acc := range rows {
		medal := "🏆"
		if i < len(medals) {
			medal = medals[i]
		}
		fmt.Fprintf(&b, "%s %s - %d points\n", medal, maskName(acc.DisplayName()), acc.Points)
	}
	w.sendText(chatID, b.String())
}

func (w *BotPoller) handleShare(from *telegram.User, chatID int64) {
	link := fmt.Sprintf("https://t.me/%s?start=%d", w.botUsername, from.ID)
	w.sendText(chatID, fmt.Sprintf(
		"🔗 Your invite link:\n%s\n\n🏆 Earn +%d points for every successful invite!",
		link, services.ReferralBonusPoints))
}

// handleGroupText nudges unauthorized members who chat in the game group.
func (w *BotPoller) handleGroupText(m *telegram.Message) {
	acc, err := w.store.Account(m.From.ID)
	if err != nil && !errors.Is(err, storage.ErrAccountNotFound) {
		log.Printf("Failed to look up account %d: %v", m.From.ID, err)
		return
	}
	if acc != nil && acc.Authorized() {
		return
	}

	handle := m.From.Username
	if handle == "" {
		handle = m.From.FirstName
	}
	w.sendText(m.Chat.ID, fmt.Sprintf(
		"⚠️ @%s please authorize your phone number before joining the game!", handle))
}

// handleChatMember registers users added to the group by someone else,
// crediting the actor as their inviter.
func (w *BotPoller) handleChatMember(cm *telegram.ChatMemberUpdated) {
	joined := cm.OldChatMember.Status == "left" && cm.NewChatMember.Status == "member"
	if !joined {
		return
	}
	newUser := cm.NewChatMember.User
	inviter := cm.From
	if newUser.IsBot || inviter.ID == newUser.ID {
		return
	}

	inviterID := inviter.ID
	acc := &models.Account{
		UserID:    newUser.ID,
		FirstName: optStr(newUser.FirstName),
		LastName:  optStr(newUser.LastName),
		Username:  optStr(newUser.Username),
		InvitedBy: &inviterID,
		CreatedAt: time.Now(),
	}
	if err := w.store.CreateAccountIfAbsent(acc); err != nil {
		log.Printf("Failed to register joined member %d: %v", newUser.ID, err)
	}
}

func (w *BotPoller) sendText(chatID int64, text string) {
	if err := w.client.SendText(chatID, text); err != nil {
		log.Printf("Failed to send message to %d: %v", chatID, err)
	}
}

func rejectionText(reason services.RejectionReason) string {
	switch reason {
	case services.RejectNotRegistered:
		return "⚠️ You're not registered yet. Send /start to me in a private chat first."
	case services.RejectBlocked:
		return "⛔ You've been blocked from playing. Please contact an admin."
	case services.RejectUnauthorized:
		return "📵 Please authorize your phone number before playing!"
	case services.RejectQuotaExhausted:
		return fmt.Sprintf("❌ You've used all %d plays for today. Come back tomorrow!", services.DailyPlayQuota)
	default:
		return "Something went wrong, please try again later."
	}
}

// maskName keeps at most the first four characters visible.
func maskName(name string) string {
	runes := []rune(name)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return string(runes) + "***"
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
