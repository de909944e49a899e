// Package telegram is an optional chat frontend. Each Telegram chat is
// bound to its own conversation session.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"parley/internal/engine"
	"parley/internal/session"
	"parley/internal/topics"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	sessions *session.Manager

	mu     sync.Mutex
	byChat map[int64]string
}

func NewBot(token string, sessions *session.Manager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:      api,
		sessions: sessions,
		byChat:   make(map[int64]string),
	}, nil
}

// Start consumes updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	log.Printf("telegram bot started as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.reply(chatID, b.handleCommand(ctx, chatID, msg.Command(), msg.CommandArguments()))
		return
	}

	eng := b.engineFor(chatID)
	reply, err := eng.Respond(ctx, msg.Text)
	if err != nil {
		b.reply(chatID, "I didn't catch that, could you say it again?")
		return
	}
	b.reply(chatID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) string {
	switch command {
	case "start":
		b.engineFor(chatID)
		return "Hi! I'm your conversation partner. Just write to me, or use /topic to pick a subject."
	case "topic":
		eng := b.engineFor(chatID)
		starter, err := topics.RandomStarter(strings.TrimSpace(args))
		if err != nil {
			return "I don't know that topic. Try one of: " + strings.Join(topics.Slugs(), ", ")
		}
		eng.Prime(starter)
		return starter
	case "clear":
		b.engineFor(chatID).Clear()
		return "Fresh start! What would you like to talk about?"
	case "stats":
		stats := b.engineFor(chatID).Stats()
		return fmt.Sprintf("Messages: %d (you %d, me %d)\nTokens: %d\nSession length: %.0fs",
			stats.TotalMessages, stats.UserMessages, stats.AssistantMessages,
			stats.TotalTokens, stats.DurationSeconds)
	default:
		return "Unknown command. I know /start, /topic, /clear and /stats."
	}
}

// engineFor returns the chat's engine, creating a session on first
// contact or after the previous one expired.
func (b *Bot) engineFor(chatID int64) *engine.Engine {
	b.mu.Lock()
	id, ok := b.byChat[chatID]
	b.mu.Unlock()

	if ok {
		if eng, err := b.sessions.Engine(id); err == nil {
			return eng
		}
	}

	s := b.sessions.Create(fmt.Sprintf("telegram:%d", chatID))
	b.mu.Lock()
	b.byChat[chatID] = s.ID
	b.mu.Unlock()

	// A just-created session is active.
	eng, _ := b.sessions.Engine(s.ID)
	return eng
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("telegram send to %d: %v", chatID, err)
	}
}
