package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crossposter/internal/core/gate"
	"crossposter/internal/core/tagtext"
	"crossposter/internal/platform/logger"
	pstrings "crossposter/internal/platform/strings"
	"crossposter/internal/services/crosspost/domain"
)

const (
	approveData   = "like"
	promptText    = "React with 👍 to crosspost"
	publishedText = "Message has been cross-posted! ✅"
	expiredText   = "Approval window closed before this reached the threshold ⌛"
	unknownText   = "Nothing to react to"
	duplicateText = "Your reaction is already counted"
	resolvedText  = "Already cross-posted"
)

// Messenger is the slice of the Bot API the router needs
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int64, kb *InlineKeyboardMarkup) (Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb *InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, id, text string) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// Handler consumes updates from the poller or the webhook
type Handler interface {
	Handle(ctx context.Context, u Update)
}

// Bot turns updates into candidates and approvals
type Bot struct {
	api    Messenger
	ingest domain.IngestPort
	tag    *tagtext.Matcher
	now    func() time.Time
	log    logger.Logger
}

// NewBot builds the update router for tag
func NewBot(api Messenger, ingest domain.IngestPort, tag string) (*Bot, error) {
	m, err := tagtext.New(tag)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api, ingest: ingest, tag: m, now: time.Now, log: *logger.Named("telegram")}, nil
}

func keyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{{Text: "👍", CallbackData: approveData}}}}
}

// ChatRef is the composite id used for prompts and posts
func ChatRef(chatID, messageID int64) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(messageID, 10)
}

// Handle routes one update; failures are logged, never returned, so one bad update cannot stall the feed
func (b *Bot) Handle(ctx context.Context, u Update) {
	switch {
	case u.CallbackQuery != nil:
		b.onCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.onMessage(ctx, u.Message)
	case u.ChannelPost != nil:
		b.onMessage(ctx, u.ChannelPost)
	}
}

func isStart(text string) bool {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/start"
}

func (b *Bot) onMessage(ctx context.Context, msg *Message) {
	if isStart(msg.Text) {
		text := fmt.Sprintf("Bot initialized! Monitoring messages with %s tag", b.tag.Tag())
		if _, err := b.api.SendMessage(ctx, msg.Chat.ID, text, 0, nil); err != nil {
			b.log.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("start reply failed")
		}
		return
	}
	if !b.tag.Has(msg.Body()) {
		return
	}

	prompt, err := b.api.SendMessage(ctx, msg.Chat.ID, promptText, msg.MessageID, keyboard())
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("prompt send failed")
		return
	}
	c := domain.Candidate{
		ID:             ChatRef(msg.Chat.ID, msg.MessageID),
		PromptID:       ChatRef(msg.Chat.ID, prompt.MessageID),
		ConversationID: strconv.FormatInt(msg.Chat.ID, 10),
		Text:           msg.Body(),
		Media:          mediaOf(msg),
	}
	if _, err := b.ingest.RegisterCandidate(ctx, c); err != nil {
		b.log.Warn().Err(err).Str("post_id", c.ID).Msg("candidate rejected")
		if derr := b.api.DeleteMessage(ctx, msg.Chat.ID, prompt.MessageID); derr != nil {
			b.log.Debug().Err(derr).Str("prompt_id", c.PromptID).Msg("prompt cleanup failed")
		}
	}
}

func mediaOf(msg *Message) *domain.Media {
	if p, ok := msg.LargestPhoto(); ok {
		return &domain.Media{Kind: "photo", Locator: p.FileID}
	}
	if msg.Video != nil {
		return &domain.Media{Kind: "video", Locator: msg.Video.FileID}
	}
	if msg.Animation != nil {
		return &domain.Media{Kind: "animation", Locator: msg.Animation.FileID}
	}
	return nil
}

func (b *Bot) onCallback(ctx context.Context, cq *CallbackQuery) {
	if cq.Data != approveData || cq.Message == nil {
		b.answer(ctx, cq.ID, "")
		return
	}
	chatID, promptMsg := cq.Message.Chat.ID, cq.Message.MessageID
	promptID := ChatRef(chatID, promptMsg)

	res := b.ingest.ReportApproval(ctx, promptID, strconv.FormatInt(cq.From.ID, 10), b.now())
	l := b.log.With().Str("prompt_id", promptID).Str("result", res.Result).Logger()
	b.answer(ctx, cq.ID, toastFor(res.Kind))

	var (
		text string
		kb   *InlineKeyboardMarkup
	)
	switch res.Kind {
	case gate.StillPending:
		text, kb = fmt.Sprintf("%s\nNeeded: %d more reactions", promptText, res.Remaining), keyboard()
	case gate.ReadyToPublish:
		text = publishedText
	case gate.ExpiredAtThreshold:
		text = expiredText
	default:
		l.Debug().Msg("approval ignored")
		return
	}
	if err := b.api.EditMessageText(ctx, chatID, promptMsg, text, kb); err != nil {
		if pstrings.ContainsFold(err.Error(), "message is not modified") {
			l.Debug().Msg("prompt already current")
			return
		}
		l.Warn().Err(err).Msg("prompt edit failed")
	}
}

// answer stops the client spinner; a late answer is rejected by Telegram and only logged
func (b *Bot) answer(ctx context.Context, id, text string) {
	if err := b.api.AnswerCallbackQuery(ctx, id, text); err != nil {
		b.log.Debug().Err(err).Str("callback_id", id).Msg("callback answer failed")
	}
}

func toastFor(k gate.Kind) string {
	switch k {
	case gate.UnknownPrompt:
		return unknownText
	case gate.DuplicateApproval:
		return duplicateText
	case gate.AlreadyResolved:
		return resolvedText
	}
	return ""
}
