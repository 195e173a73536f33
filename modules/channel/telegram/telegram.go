package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/chatmem/internal/channel"
	"github.com/flemzord/chatmem/internal/core"
	"github.com/flemzord/chatmem/pkg/message"
)

// ModuleID is the id the channel registers under.
const ModuleID = "channel.telegram"

const startupTimeout = 15 * time.Second

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ channel.Channel       = (*Telegram)(nil)
	_ channel.TypingChannel = (*Telegram)(nil)
	_ core.Configurable     = (*Telegram)(nil)
	_ core.Provisioner      = (*Telegram)(nil)
	_ core.Validator        = (*Telegram)(nil)
	_ core.Starter          = (*Telegram)(nil)
	_ core.Stopper          = (*Telegram)(nil)
)

// Telegram implements the Telegram Bot API channel.
type Telegram struct {
	config    Config
	client    *Client
	logger    *slog.Logger
	allowList *channel.AllowList
	inbox     func(message.InboundMessage) error
	botUser   *User
	poller    *Poller
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.logger = ctx.Logger
	ctx.RegisterSecret(t.config.Token)
	t.client = NewClient(t.config.Token, t.config.APIURL)
	t.allowList = channel.NewAllowList(t.config.AllowUsers, t.config.AllowGroups)
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	return t.config.validate()
}

// Start implements core.Starter. It checks the token with getMe, clears
// any webhook and starts long polling.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return errors.New("telegram: inbox not set, call SetInbox before Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	user, err := t.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.botUser = user
	t.logger.Info("telegram: bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	if err := t.client.DeleteWebhook(ctx); err != nil {
		t.logger.Warn("telegram: deleteWebhook failed, polling may conflict", "error", err)
	}

	poller, err := NewPoller(t.client, t.inbox, t.allowList, t.logger, ModuleID, t.config)
	if err != nil {
		return fmt.Errorf("telegram: create poller: %w", err)
	}
	t.poller = poller
	t.poller.Start(context.Background())
	t.logger.Info("telegram: polling started", "timeout", t.config.PollingTimeout)
	return nil
}

// Stop implements core.Stopper.
func (t *Telegram) Stop(_ context.Context) error {
	if t.poller != nil {
		t.poller.Stop()
	}
	t.logger.Info("telegram: channel stopped")
	return nil
}

// BotUsername returns the username reported by getMe, empty before Start.
func (t *Telegram) BotUsername() string {
	if t.botUser == nil {
		return ""
	}
	return t.botUser.Username
}

// Send implements channel.Channel.
func (t *Telegram) Send(ctx context.Context, msg message.OutboundMessage) error {
	return t.sendOutbound(ctx, msg)
}

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn func(msg message.InboundMessage) error) {
	t.inbox = fn
}

// SendTyping implements channel.TypingChannel.
func (t *Telegram) SendTyping(ctx context.Context, chat message.Chat, threadID int64) error {
	return t.client.SendChatAction(ctx, chat.ID, threadID, "typing")
}
