package telegram

import (
	"context"
	"strconv"

	perr "crossposter/internal/platform/errors"
)

// Notifier posts dispatch progress back into the originating chat
type Notifier struct {
	api Messenger
}

// NewNotifier wraps api
func NewNotifier(api Messenger) *Notifier { return &Notifier{api: api} }

// Notify sends text to the chat named by conversation
func (n *Notifier) Notify(ctx context.Context, conversation, text string) error {
	chatID, err := strconv.ParseInt(conversation, 10, 64)
	if err != nil {
		return perr.WithField(perr.InvalidArgf("telegram: bad chat id %q", conversation), "conversation_id")
	}
	_, err = n.api.SendMessage(ctx, chatID, text, 0, nil)
	return err
}
