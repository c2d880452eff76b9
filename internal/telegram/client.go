// Package telegram provides a client for posting and editing listing
// notifications via the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the slice of tgbotapi.BotAPI the client uses. Tests swap
// in a fake.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client handles Telegram notifications. All sends funnel through one
// throttle so concurrent feeds cannot trip the Bot API rate limit.
type Client struct {
	bot            botAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	minSendGap     time.Duration

	mu       sync.Mutex
	lastSend time.Time
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, minSendGap time.Duration, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	if minSendGap <= 0 {
		minSendGap = 1100 * time.Millisecond
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		minSendGap:     minSendGap,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates
// and handles bot commands. It returns immediately; the goroutine
// stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// throttle blocks until the minimum gap since the previous send has
// elapsed, then claims the slot.
func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.minSendGap - time.Since(c.lastSend); wait > 0 {
		time.Sleep(wait)
	}
	c.lastSend = time.Now()
}

// send delivers one chattable with linear-backoff retry. A rate-limit
// response is honored by sleeping out the server's retry-after before
// counting the attempt as failed.
func (c *Client) send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		c.throttle()
		sent, err := c.bot.Send(msg)
		if err == nil {
			return sent, nil
		}
		lastErr = err

		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			time.Sleep(time.Duration(apiErr.RetryAfter) * time.Second)
			continue
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return tgbotapi.Message{}, fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// Post sends a plain-text message and returns its message ID, so the
// caller can edit it later. Link previews are disabled; the message
// already carries its own URL line.
func (c *Client) Post(text string) (int, error) {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.DisableWebPagePreview = true
	sent, err := c.send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit replaces the text of an already-posted message.
func (c *Client) Edit(messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(c.chatID, messageID, text)
	edit.DisableWebPagePreview = true
	_, err := c.send(edit)
	return err
}

// SendStartupNotice posts a short banner naming the watched feeds.
func (c *Client) SendStartupNotice(feeds []string) error {
	_, err := c.Post(fmt.Sprintf("👀 Watching %d feeds: %s", len(feeds), strings.Join(feeds, ", ")))
	return err
}
