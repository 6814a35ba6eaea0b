package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ZanzyTHEbar/ai-counselor/relay/conversation"
	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/ZanzyTHEbar/ai-counselor/relay/domain"
	"github.com/ZanzyTHEbar/ai-counselor/relay/line"
	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc/pool"
)

type messageResponse struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleMessages serves the stateless API.
func (s *Server) handleMessages(c *gin.Context) {
	reqID := requestIDFrom(c)

	body, err := c.GetRawData()
	if err != nil {
		badRequestBody(c, "failed to read request body")
		return
	}
	req, params := domain.ParseMessageRequest(body)
	if len(params) > 0 {
		unprocessable(c, params)
		return
	}

	key := req.ConversationID
	if key == "" {
		key = c.ClientIP()
	}
	release, err := s.deps.Limiter.Acquire(c.Request.Context(), key)
	if err != nil {
		s.rejectAcquire(c, reqID, err)
		return
	}
	defer release()

	res, err := s.deps.Stateless.Execute(c.Request.Context(), conversation.Input{
		RequestID:      reqID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", reqID).Msg("failed to generate message")
		internalError(c, s.opts.ErrorStatusOK)
		return
	}

	c.JSON(http.StatusOK, messageResponse{ConversationID: res.ConversationID, Message: res.Message})
}

func (s *Server) rejectAcquire(c *gin.Context, reqID string, err error) {
	if errors.Is(err, ports.ErrRateLimitExceeded) {
		s.logger.Warn().Err(err).Str("request_id", reqID).Msg("request rejected by rate limiter")
		tooManyRequests(c)
		return
	}
	s.logger.Error().Err(err).Str("request_id", reqID).Msg("rate limiter failed")
	internalError(c, s.opts.ErrorStatusOK)
}

// handleWebhook serves LINE deliveries. User text events run concurrently; the
// response is sent after all of them finish.
func (s *Server) handleWebhook(c *gin.Context) {
	reqID := requestIDFrom(c)

	body, err := c.GetRawData()
	if err != nil {
		badRequestBody(c, "failed to read request body")
		return
	}
	events, err := line.ParseTextEvents(s.opts.ChannelSecret, body, c.GetHeader(line.SignatureHeader))
	if errors.Is(err, line.ErrInvalidSignature) {
		badRequestHeader(c, fmt.Sprintf("'%s' does not match the request body", line.SignatureHeader))
		return
	}
	if err != nil {
		badRequestBody(c, "request body is not a valid webhook payload")
		return
	}

	// Replies must still go out if LINE drops the connection early.
	ctx := context.WithoutCancel(c.Request.Context())
	p := pool.New().WithMaxGoroutines(s.opts.WebhookConcurrency).WithContext(ctx)
	for _, ev := range events {
		eventReqID := fmt.Sprintf("%s-%d", reqID, ev.Index)
		p.Go(func(ctx context.Context) error {
			s.handleEvent(ctx, eventReqID, ev)
			return nil
		})
	}
	_ = p.Wait()

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleEvent(ctx context.Context, reqID string, ev line.TextEvent) {
	userID := ev.UserID
	text := ev.Text
	log := s.logger.With().Str("request_id", reqID).Str("owner_id", userID).Logger()

	if !domain.IsUserID(userID) {
		log.Warn().Msg("skipping event with invalid user id")
		return
	}
	if !domain.IsMessage(text) {
		log.Warn().Int("length", len([]rune(text))).Msg("skipping message outside the accepted length")
		return
	}

	release, err := s.deps.Limiter.Acquire(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Msg("event rejected by rate limiter")
		return
	}
	defer release()

	res, err := s.deps.Stateful.Execute(ctx, conversation.Input{
		RequestID: reqID,
		OwnerID:   userID,
		Message:   text,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to generate message")
		return
	}

	if err := s.deps.Replier.ReplyText(ctx, ev.ReplyToken, res.Message); err != nil {
		log.Error().Err(err).Msg("failed to send reply")
	}
}
