package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// Notifier pushes batch summaries to a Telegram chat. It is optional; the
// rest of the service works without it.
type Notifier struct {
	bot    *bot.Bot
	chatID int64
	logger *slog.Logger
}

// New creates a Telegram notifier for the given chat
func New(token string, chatID int64, logger *slog.Logger) (*Notifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Notifier{
		bot:    b,
		chatID: chatID,
		logger: logger.With("component", "notify"),
	}, nil
}

// BatchCompleted sends a summary of a finished batch run
func (n *Notifier) BatchCompleted(ctx context.Context, report *models.BatchReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Daily EML conversion: %s</b>\n", html.EscapeString(report.Folder))
	fmt.Fprintf(&sb, "Converted: %d / %d\n", report.Converted, report.Total)
	if report.Failed > 0 {
		fmt.Fprintf(&sb, "Failed: %d\n", report.Failed)
		for _, res := range report.Results {
			if res.Error != nil {
				fmt.Fprintf(&sb, "- %s: %s\n", html.EscapeString(res.OriginalFile), res.Error.Kind)
			}
		}
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      sb.String(),
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		n.logger.Error("failed to send batch notification", "error", err)
		return
	}
	n.logger.Info("batch notification sent", "chat_id", n.chatID)
}

// BatchFailed reports a batch that aborted before producing a report
func (n *Notifier) BatchFailed(ctx context.Context, err error) {
	text := fmt.Sprintf("<b>Daily EML conversion failed</b>\n%s", html.EscapeString(err.Error()))
	if _, serr := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	}); serr != nil {
		n.logger.Error("failed to send failure notification", "error", serr)
	}
}
