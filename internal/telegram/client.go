// Package telegram implements monitor.Client on top of the Telegram Bot API.
//
// The Bot API cannot enumerate dialogs or read channel history, so every chat
// and post the bot observes through long polling is written to the journal,
// and Dialogs/History are answered from there. The bot must be a member of
// each watched channel.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/tgwatch/internal/config"
	"github.com/nextlevelbuilder/tgwatch/internal/journal"
	"github.com/nextlevelbuilder/tgwatch/internal/monitor"
)

// Client talks to Telegram via a bot token.
type Client struct {
	bot        *telego.Bot
	journal    *journal.Journal
	pollCancel context.CancelFunc // cancels the long polling context
	pollDone   chan struct{}      // closed when polling goroutine exits
}

// New creates a bot client. j receives every observed chat and post.
func New(cfg config.TelegramConfig, j *journal.Journal) (*Client, error) {
	var opts []telego.BotOption

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Client{bot: bot, journal: j}, nil
}

// Username is the bot's username.
func (c *Client) Username() string { return c.bot.Username() }

// Resolve looks up a chat with getChat. Handles and t.me URLs are tried
// against the journal when getChat fails.
func (c *Client) Resolve(ctx context.Context, ref string) (monitor.Peer, error) {
	id, username, err := parseRef(ref)
	if err != nil {
		return monitor.Peer{}, err
	}

	chatID := tu.ID(id)
	if username != "" {
		chatID = tu.Username("@" + username)
	}

	info, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: chatID})
	if err != nil {
		if username != "" {
			if chat, ok, jerr := c.journal.ChatByUsername(ctx, username); jerr == nil && ok {
				return chatPeer(chat), nil
			}
		}
		if isNotFound(err) {
			return monitor.Peer{}, fmt.Errorf("get chat %s: %w", ref, monitor.ErrNotFound)
		}
		return monitor.Peer{}, fmt.Errorf("get chat %s: %w", ref, err)
	}

	peer := monitor.Peer{
		ID:       info.ID,
		Kind:     peerKind(info.Type),
		Title:    chatTitle(info.Title, info.FirstName, info.LastName),
		Username: info.Username,
	}
	c.recordChat(ctx, peer)
	return peer, nil
}

// Dialogs lists the chats in the journal.
func (c *Client) Dialogs(ctx context.Context) ([]monitor.Peer, error) {
	chats, err := c.journal.Chats(ctx)
	if err != nil {
		return nil, err
	}
	peers := make([]monitor.Peer, 0, len(chats))
	for _, ch := range chats {
		peers = append(peers, chatPeer(ch))
	}
	return peers, nil
}

// History returns journaled posts of peer, newest first.
func (c *Client) History(ctx context.Context, peer monitor.Peer, q monitor.HistoryQuery) ([]monitor.Message, error) {
	posts, err := c.journal.Posts(ctx, peer.ID, q.Limit, q.Since)
	if err != nil {
		return nil, err
	}
	msgs := make([]monitor.Message, 0, len(posts))
	for _, p := range posts {
		msgs = append(msgs, monitor.Message{ChatID: p.ChatID, ID: p.MessageID, Text: p.Text, Date: p.Date})
	}
	return msgs, nil
}

// Forward forwards msg into to with forwardMessage.
func (c *Client) Forward(ctx context.Context, to monitor.Peer, msg monitor.Message) error {
	_, err := c.bot.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     tu.ID(to.ID),
		FromChatID: tu.ID(msg.ChatID),
		MessageID:  msg.ID,
	})
	if err != nil {
		return fmt.Errorf("forward %d/%d to %d: %w", msg.ChatID, msg.ID, to.ID, err)
	}
	return nil
}

// Subscribe starts long polling. New posts from any chat are sent on the
// returned channel; edits only refresh the journal.
func (c *Client) Subscribe(ctx context.Context) (<-chan monitor.Message, error) {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: 30,
		AllowedUpdates: []string{
			"channel_post",
			"edited_channel_post",
			"message",
			"my_chat_member",
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start long polling: %w", err)
	}
	slog.Info("telegram bot connected", "username", c.bot.Username())

	out := make(chan monitor.Message, 64)
	go func() {
		defer close(c.pollDone)
		defer close(out)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				msg, isNew := c.handleUpdate(pollCtx, update)
				if !isNew {
					continue
				}
				select {
				case out <- msg:
				case <-pollCtx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Stop cancels long polling and waits for the polling goroutine to exit.
func (c *Client) Stop() {
	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
			slog.Info("telegram bot stopped")
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}
}

// handleUpdate journals the update and reports whether it carries a new post.
func (c *Client) handleUpdate(ctx context.Context, update telego.Update) (monitor.Message, bool) {
	switch {
	case update.ChannelPost != nil:
		return c.recordMessage(ctx, update.ChannelPost), true
	case update.Message != nil:
		return c.recordMessage(ctx, update.Message), true
	case update.EditedChannelPost != nil:
		c.recordMessage(ctx, update.EditedChannelPost)
	case update.MyChatMember != nil:
		ch := update.MyChatMember.Chat
		slog.Info("bot membership changed",
			"chat", ch.ID,
			"title", ch.Title,
			"status", update.MyChatMember.NewChatMember.MemberStatus(),
		)
		c.recordChat(ctx, telegoPeer(ch))
	default:
		slog.Debug("telegram update skipped", "update_id", update.UpdateID)
	}
	return monitor.Message{}, false
}

func (c *Client) recordMessage(ctx context.Context, m *telego.Message) monitor.Message {
	msg := monitor.Message{
		ChatID: m.Chat.ID,
		ID:     m.MessageID,
		Text:   messageText(m),
		Date:   time.Unix(m.Date, 0),
	}
	c.recordChat(ctx, telegoPeer(m.Chat))
	if err := c.journal.RecordPost(ctx, journal.Post{
		ChatID:    msg.ChatID,
		MessageID: msg.ID,
		Text:      msg.Text,
		Date:      msg.Date,
	}); err != nil {
		slog.Warn("journal post failed", "chat", msg.ChatID, "msg", msg.ID, "error", err)
	}
	return msg
}

func (c *Client) recordChat(ctx context.Context, p monitor.Peer) {
	if err := c.journal.RecordChat(ctx, journal.Chat{
		ID:       p.ID,
		Kind:     string(p.Kind),
		Title:    p.Title,
		Username: p.Username,
	}); err != nil {
		slog.Warn("journal chat failed", "chat", p.ID, "error", err)
	}
}
