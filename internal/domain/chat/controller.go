package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthpalm/aisha/backend/internal/domain/session"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/logging"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/monitoring"
	"github.com/healthpalm/aisha/backend/internal/shared/types"
)

// ApologyText is appended as the assistant message whenever the
// transport cannot produce a usable reply, whatever the failure class.
const ApologyText = "I'm sorry, I couldn't get a response at this moment. Please try again later."

// Transport sends a user message plus conversation history to the
// assistant service and returns its reply.
type Transport interface {
	Send(ctx context.Context, userText string, history []types.ChatTurn) (string, error)
}

// Controller orchestrates chat submissions against the session store:
// optimistic user append, one-time title assignment, transport call,
// and reply (or apology) reconciliation.
type Controller struct {
	store     *session.Store
	transport Transport
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// NewController creates a conversation controller.
func NewController(store *session.Store, transport Transport, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		store:     store,
		transport: transport,
		logger:    logger,
	}
}

// WithMetrics adds metrics tracking to the controller.
func (c *Controller) WithMetrics(metrics *monitoring.Metrics) *Controller {
	c.metrics = metrics
	return c
}

// Submission is one in-flight user message. It pins the session that
// originated it, so a late reply lands there even if the user has
// switched sessions meanwhile.
type Submission struct {
	ID        string           `json:"id"`
	SessionID int              `json:"session_id"`
	Text      string           `json:"text"`
	History   []types.ChatTurn `json:"-"`
	Renamed   bool             `json:"renamed"`
}

// Begin starts a submission against the active session: the user
// message is appended immediately and, when this is the session's
// first user message, the title is derived from it. Returns nil when
// the trimmed input is empty — nothing is appended and no transport
// call should follow.
func (c *Controller) Begin(text string) *Submission {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sessionID := c.store.ActiveID()
	c.store.Append(sessionID, types.Message{Sender: types.SenderUser, Text: text})
	renamed := c.store.RenameIfDefault(sessionID, Summarize(text))

	sub := &Submission{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Text:      text,
		History:   c.store.History(sessionID),
		Renamed:   renamed,
	}

	c.logger.Debug("submission started",
		zap.String("submission_id", sub.ID),
		zap.Int("session_id", sessionID),
		zap.Bool("renamed", renamed),
	)
	return sub
}

// Resolve settles a submission: exactly one assistant message is
// appended to the originating session — the reply on success, the
// apology otherwise. The conversation never stalls waiting for a
// response that already failed.
func (c *Controller) Resolve(sub *Submission, reply string, err error) types.Message {
	msg := types.Message{Sender: types.SenderAssistant, Text: reply}
	if err != nil || reply == "" {
		msg.Text = ApologyText
		c.logger.Warn("submission failed, substituting apology",
			zap.String("submission_id", sub.ID),
			zap.Int("session_id", sub.SessionID),
			zap.Error(err),
		)
		if c.metrics != nil {
			c.metrics.RecordSubmission("fallback")
		}
	} else if c.metrics != nil {
		c.metrics.RecordSubmission("ok")
	}

	c.store.Append(sub.SessionID, msg)
	return msg
}

// Submit runs a full submission: Begin, transport call, Resolve. The
// returned bool is false when the input was blank and nothing happened.
func (c *Controller) Submit(ctx context.Context, text string) (*Submission, types.Message, bool) {
	sub := c.Begin(text)
	if sub == nil {
		return nil, types.Message{}, false
	}

	reply, err := c.transport.Send(ctx, sub.Text, sub.History)
	return sub, c.Resolve(sub, reply, err), true
}
