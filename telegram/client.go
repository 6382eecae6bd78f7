// telegram/client.go
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a minimal Bot API client covering what the duel game needs:
// long-polled updates, text messages with keyboards, dice rolls, and
// message edits/removal.
type Client struct {
	baseURL string
	http    *http.Client
	// Long polls hold the connection open for up to the poll timeout, so
	// they get their own client with a wider deadline.
	pollHTTP *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		baseURL: "https://api.telegram.org/bot" + token,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		pollHTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(client *http.Client, method string, params, out interface{}) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, method)

	var body io.Reader
	if params != nil {
		jsonData, err := json.Marshal(params)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return fmt.Errorf("telegram %s returned malformed response: %w", method, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram %s failed: %d — %s", method, resp.StatusCode, apiResp.Description)
	}

	if out != nil {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("telegram %s result decode failed: %w", method, err)
		}
	}
	return nil
}

// GetMe resolves the bot's own identity (used for invite links).
func (c *Client) GetMe() (*User, error) {
	var user User
	if err := c.call(c.http, "getMe", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUpdates long-polls for new updates past offset.
func (c *Client) GetUpdates(offset int64, timeoutSec int) ([]Update, error) {
	params := map[string]interface{}{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query", "chat_member"},
	}
	var updates []Update
	if err := c.call(c.pollHTTP, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts text with an optional inline or reply keyboard.
func (c *Client) SendMessage(chatID int64, text string, replyMarkup interface{}) (*Message, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if replyMarkup != nil {
		params["reply_markup"] = replyMarkup
	}
	var msg Message
	if err := c.call(c.http, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendText satisfies services.Messenger.
func (c *Client) SendText(chatID int64, text string) error {
	_, err := c.SendMessage(chatID, text, nil)
	return err
}

// SendDice rolls a platform dice in the chat and returns the rolled value.
func (c *Client) SendDice(chatID int64) (int, error) {
	params := map[string]interface{}{"chat_id": chatID}
	var msg Message
	if err := c.call(c.http, "sendDice", params, &msg); err != nil {
		return 0, err
	}
	if msg.Dice == nil {
		return 0, fmt.Errorf("sendDice response carried no dice value")
	}
	return msg.Dice.Value, nil
}

func (c *Client) EditMessageText(chatID, messageID int64, text string) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	return c.call(c.http, "editMessageText", params, nil)
}

func (c *Client) DeleteMessage(chatID, messageID int64) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	return c.call(c.http, "deleteMessage", params, nil)
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing a spinner.
func (c *Client) AnswerCallbackQuery(callbackID string) error {
	params := map[string]interface{}{"callback_query_id": callbackID}
	return c.call(c.http, "answerCallbackQuery", params, nil)
}
