// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// ParseMode values accepted by SendMessageParams.
const (
	ParseModeNone = ""
	ParseModeHTML = "HTML"
)

type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string
	Buttons   [][]InlineButton
}

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
	SetMenuCommands(ctx context.Context) error
}
