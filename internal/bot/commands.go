package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/store"
)

const adminHelp = `Available commands:
/standings - Current leaderboard standings
/toggle - Flip leaderboard visibility
/score <submission-id> <score> - Assign a score (0-100)
/help - Show this message

Examples:
/score 7f9c3c1e-1b2a-4a5e-8d7c-0e1f2a3b4c5d 85
/toggle`

type commandHandler func(*tgbotapi.Message) error

func (b *Bot) routeAdminCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"standings": b.handleStandings,
		"toggle":    b.handleToggle,
		"score":     b.handleScore,
		"help":      b.handleHelp,
		"start":     b.handleHelp,
	}
	handler, found := commands[cmd]
	return handler, found
}

// handleMessage ignores everyone who is not a configured admin: the bot is
// an admin console, students use the web portal.
func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !b.admins[msg.From.ID] {
		return
	}

	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, "Send /help for the list of commands.")
		return
	}

	if handler, ok := b.routeAdminCommands(msg.Command()); ok {
		if err := handler(msg); err != nil {
			logger.Error.Printf("Command error: %v", err)
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	b.sendMessage(msg.Chat.ID, "Unknown command. Send /help for the list of commands.")
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendMessage(msg.Chat.ID, adminHelp)
}

func (b *Bot) handleStandings(msg *tgbotapi.Message) error {
	ranks, err := b.ranker.Leaderboard(true)
	if err != nil {
		return err
	}

	if len(ranks) == 0 {
		return b.sendMessage(msg.Chat.ID, "No scored submissions yet.")
	}

	var sb strings.Builder
	sb.WriteString("Standings:\n")
	for i, rank := range ranks {
		fmt.Fprintf(&sb, "%d. %s (%s) - %d points, %d submissions\n",
			i+1, rank.Name, rank.School, rank.TotalScore, rank.SubmissionCount)
	}

	return b.sendMessage(msg.Chat.ID, sb.String())
}

func (b *Bot) handleToggle(msg *tgbotapi.Message) error {
	visible, err := b.ranker.ToggleVisibility()
	if err != nil {
		return err
	}

	state := "hidden"
	if visible {
		state = "visible"
	}
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Leaderboard is now %s", state))
}

func (b *Bot) handleScore(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendMessage(msg.Chat.ID, "Usage: /score <submission-id> <score>")
	}

	score, err := strconv.Atoi(args[1])
	if err != nil {
		return b.sendMessage(msg.Chat.ID, "Score must be an integer in 0-100")
	}

	sub, err := b.ranker.AssignScore(args[0], score)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return b.sendMessage(msg.Chat.ID, "No submission with that id")
		}
		return err
	}

	return b.sendMessage(msg.Chat.ID,
		fmt.Sprintf("Scored %s (%s) with %d", sub.ID, sub.Filename, score))
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	reply := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(reply); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
