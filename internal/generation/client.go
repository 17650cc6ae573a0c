package generation

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coze-dev/coze-go"
	"github.com/getsentry/sentry-go"
)

const (
	// DefaultBaseURL is the Coze open API host for the China region
	DefaultBaseURL = coze.CnBaseURL
	// DefaultUserID identifies this service to the bot
	DefaultUserID = "music_generator_user"
)

// Chat identifies one bot conversation turn
type Chat struct {
	ID             string
	ConversationID string
}

// ChatStatus is the state Coze reports for a chat
type ChatStatus struct {
	Status    string
	LastError string
}

// Message is one entry of a conversation
type Message struct {
	Role        string
	Type        string
	Content     string
	ContentType string
}

// ChatAPI is the subset of the Coze chat API the generator needs
type ChatAPI interface {
	CreateChat(ctx context.Context, instruction string, metadata map[string]string) (Chat, error)
	Retrieve(ctx context.Context, chat Chat) (ChatStatus, error)
	ListMessages(ctx context.Context, chat Chat) ([]Message, error)
}

// Client talks to a Coze bot through the official SDK.
// Polling stays with the Generator so its clock decides every wait.
type Client struct {
	api   coze.CozeAPI
	token string
	botID string
	user  string
}

// NewClient creates a Coze client. Empty baseURL/userID use the defaults.
func NewClient(baseURL, token, botID, userID string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userID == "" {
		userID = DefaultUserID
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		api: coze.NewCozeAPI(coze.NewTokenAuth(token),
			coze.WithBaseURL(strings.TrimRight(baseURL, "/")),
			coze.WithHttpClient(httpClient),
		),
		token: token,
		botID: botID,
		user:  userID,
	}
}

// Configured reports whether the client has credentials to talk to the bot
func (c *Client) Configured() bool {
	return c.token != "" && c.botID != ""
}

func boolPtr(v bool) *bool {
	return &v
}

// CreateChat submits the instruction as a new non-streaming user message
func (c *Client) CreateChat(ctx context.Context, instruction string, metadata map[string]string) (Chat, error) {
	span := startSpan(ctx, "create")
	defer span.Finish()

	resp, err := c.api.Chat.Create(span.Context(), &coze.CreateChatsReq{
		BotID:           c.botID,
		UserID:          c.user,
		Messages:        []*coze.Message{coze.BuildUserQuestionText(instruction, nil)},
		Stream:          boolPtr(false),
		AutoSaveHistory: boolPtr(true),
		MetaData:        metadata,
	})
	if err != nil {
		return Chat{}, upstreamError("create chat", err)
	}
	if resp == nil || resp.ID == "" {
		return Chat{}, fmt.Errorf("%w: chat id missing from response", ErrUpstreamUnavailable)
	}
	return Chat{ID: resp.ID, ConversationID: resp.ConversationID}, nil
}

// Retrieve fetches the current chat status
func (c *Client) Retrieve(ctx context.Context, chat Chat) (ChatStatus, error) {
	span := startSpan(ctx, "retrieve")
	defer span.Finish()

	resp, err := c.api.Chat.Retrieve(span.Context(), &coze.RetrieveChatsReq{
		ConversationID: chat.ConversationID,
		ChatID:         chat.ID,
	})
	if err != nil {
		return ChatStatus{}, upstreamError("retrieve chat", err)
	}
	status := ChatStatus{Status: string(resp.Status)}
	if resp.LastError != nil {
		status.LastError = resp.LastError.Msg
	}
	return status, nil
}

// ListMessages returns every message of the chat in upstream order
func (c *Client) ListMessages(ctx context.Context, chat Chat) ([]Message, error) {
	span := startSpan(ctx, "list_messages")
	defer span.Finish()

	resp, err := c.api.Chat.Messages.List(span.Context(), &coze.ListChatsMessagesReq{
		ConversationID: chat.ConversationID,
		ChatID:         chat.ID,
	})
	if err != nil {
		return nil, upstreamError("list messages", err)
	}
	messages := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m == nil {
			continue
		}
		messages = append(messages, Message{
			Role:        string(m.Role),
			Type:        string(m.Type),
			Content:     m.Content,
			ContentType: string(m.ContentType),
		})
	}
	return messages, nil
}

func startSpan(ctx context.Context, op string) *sentry.Span {
	span := sentry.StartSpan(ctx, "coze.api_call")
	span.Description = "coze chat " + op
	return span
}

// upstreamError keeps the Coze code and log id visible when the SDK reports them
func upstreamError(op string, err error) error {
	if cozeErr, ok := coze.AsCozeError(err); ok {
		return fmt.Errorf("%w: %s: code %d: %s (log id %s)", ErrUpstreamUnavailable, op,
			cozeErr.Code, cozeErr.Message, cozeErr.LogID)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
