package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"
)

// Persona is the base system instruction of the course assistant.
const Persona = "你是一个知识渊博，乐于助人，且耐心认真帮助用户的课程问答助手"

const (
	contextHeader = "\n\n以下是参考资料: \n"
	contextFooter = "\n\n请根据以上资料和对话历史进行回答。"
)

// ClientConfig holds per-call settings shared by every Chat request.
type ClientConfig struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
	Persona     string
}

// Client is a stateless chat client on top of a Provider.
type Client struct {
	provider Provider
	cfg      ClientConfig
}

// NewClient creates a chat client. An empty persona falls back to Persona.
func NewClient(provider Provider, cfg ClientConfig) *Client {
	if cfg.Persona == "" {
		cfg.Persona = Persona
	}
	return &Client{provider: provider, cfg: cfg}
}

type chatOptions struct {
	role      Role
	reference string
}

// ChatOption customises a single Chat call.
type ChatOption func(*chatOptions)

// WithReference injects retrieved document text into the system message.
func WithReference(text string) ChatOption {
	return func(o *chatOptions) { o.reference = text }
}

// WithRole sends the new turn under a role other than user.
func WithRole(role Role) ChatOption {
	return func(o *chatOptions) { o.role = role }
}

// BuildMessages assembles the request: one system message, the history as
// given, then the new turn. history must not already contain userText.
func (c *Client) BuildMessages(userText string, history []Message, opts ...ChatOption) []Message {
	o := chatOptions{role: RoleUser}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.role.Valid() {
		o.role = RoleUser
	}

	system := c.cfg.Persona
	if o.reference != "" {
		system += contextHeader + o.reference + contextFooter
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	for _, m := range history {
		if !m.Role.Valid() {
			log.Debug().Str("role", string(m.Role)).Msg("dropping history message with unknown role")
			continue
		}
		messages = append(messages, m)
	}
	return append(messages, Message{Role: o.role, Content: userText})
}

// Chat performs one completion and returns the assistant text. Errors wrap
// ErrUpstream or ErrUnparseable.
func (c *Client) Chat(ctx context.Context, userText string, history []Message, opts ...ChatOption) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req := CompletionRequest{
		Model:       c.cfg.Model,
		Messages:    c.BuildMessages(userText, history, opts...),
		Temperature: c.cfg.Temperature,
	}

	start := time.Now()
	resp, err := c.provider.Complete(ctx, req)
	if err == nil && (resp == nil || resp.Content == "") {
		err = emptyCompletion(c.provider.Name())
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrUnparseable):
			log.Error().Str("provider", c.provider.Name()).Err(err).Msg("unparseable completion")
		default:
			if !errors.Is(err, ErrUpstream) {
				err = fmt.Errorf("%s: %w: %w", c.provider.Name(), ErrUpstream, err)
			}
			log.Error().Str("provider", c.provider.Name()).Dur("elapsed", time.Since(start)).Err(err).Msg("completion request failed")
		}
		return "", err
	}

	log.Debug().Str("provider", c.provider.Name()).Int("messages", len(req.Messages)).
		Int("input_tokens", resp.InputTokens).Int("output_tokens", resp.OutputTokens).
		Dur("elapsed", time.Since(start)).Msg("completion")
	return resp.Content, nil
}

// ProviderName reports the backend behind the client.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}
