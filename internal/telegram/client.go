// Package telegram delivers triggered alert notifications via the Telegram
// Bot API. Messages use MarkdownV2 formatting and delivery retries with a
// linear backoff before giving up.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tessora/marketscope/internal/models"
)

// Client sends alert notifications to a single Telegram chat.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
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

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// NotifyTriggered sends one message describing the rules a pass triggered.
func (c *Client) NotifyTriggered(ctx context.Context, rules []models.AlertRule) error {
	if len(rules) == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(c.chatID, formatMessage(rules))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage formats triggered rules into a Telegram message
func formatMessage(rules []models.AlertRule) string {
	message := "🚨 *Market Alerts Triggered*\n\n"

	if at := rules[0].TriggeredAt; at != nil {
		dateStr := escapeMarkdownV2(at.Format("2006-01-02 15:04:05"))
		message += fmt.Sprintf("📅 Triggered: %s\n\n", dateStr)
	}

	for i, rule := range rules {
		question := rule.MarketQuestion
		if question == "" {
			question = rule.MarketID
		}
		message += fmt.Sprintf("%d\\. %s\n", i+1, escapeMarkdownV2(question))
		message += fmt.Sprintf("   %s %s\n", typeEmoji(rule.Type), escapeMarkdownV2(describeRule(rule)))
		if rule.Message != "" {
			message += fmt.Sprintf("   💬 %s\n", escapeMarkdownV2(rule.Message))
		}
		message += "\n"
	}

	return message
}

func describeRule(rule models.AlertRule) string {
	switch rule.Type {
	case models.AlertPriceChange:
		return fmt.Sprintf("Score moved more than 10 points from %.1f", rule.Threshold)
	case models.AlertVolumeSpike:
		return fmt.Sprintf("Volume exceeded %.0f", rule.Threshold)
	case models.AlertLiquidityLow:
		return fmt.Sprintf("Liquidity dropped below %.0f", rule.Threshold)
	case models.AlertClosingSoon:
		return "Market closes within 24 hours"
	}
	return string(rule.Type)
}

func typeEmoji(t models.AlertType) string {
	switch t {
	case models.AlertPriceChange:
		return "📈"
	case models.AlertVolumeSpike:
		return "📊"
	case models.AlertLiquidityLow:
		return "💧"
	case models.AlertClosingSoon:
		return "⏱"
	}
	return "🔔"
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}
