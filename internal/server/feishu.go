package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/data"
)

// seenTTL is how long a Feishu message id is remembered for redelivery dedup
const seenTTL = 5 * time.Minute

// FeishuServer receives Feishu direct messages over the long connection
// and feeds them into the same pipeline as WhatsApp
type FeishuServer struct {
	appID     string
	appSecret string
	pipeline  InboundSubmitter
	logger    *zap.Logger

	// Message deduplication cache
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time // msgID -> timestamp
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(appID, appSecret string, pipeline InboundSubmitter, logger *zap.Logger) *FeishuServer {
	return &FeishuServer{
		appID:     appID,
		appSecret: appSecret,
		pipeline:  pipeline,
		logger:    logger.Named("feishu"),
		seenMsgs:  make(map[string]time.Time),
	}
}

// Start connects and blocks until ctx is cancelled
func (s *FeishuServer) Start(ctx context.Context) error {
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(_ context.Context, event *larkim.P2MessageReceiveV1) error {
			s.handleMessage(event)
			return nil
		})

	wsCli := larkws.NewClient(s.appID, s.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	s.logger.Info("starting long connection")
	errCh := make(chan error, 1)
	go func() { errCh <- wsCli.Start(ctx) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// handleMessage submits direct text messages as feishu:<open_id>
func (s *FeishuServer) handleMessage(event *larkim.P2MessageReceiveV1) {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return
	}
	msg := event.Event.Message

	if deref(msg.ChatType) != "p2p" || deref(msg.MessageType) != "text" {
		return
	}
	if event.Event.Sender == nil || event.Event.Sender.SenderId == nil {
		return
	}
	// Skip messages sent by bots, including our own replies
	if deref(event.Event.Sender.SenderType) == "app" {
		return
	}
	openID := deref(event.Event.Sender.SenderId.OpenId)
	if openID == "" {
		return
	}

	msgID := deref(msg.MessageId)
	if !s.markIfUnseen(msgID) {
		s.logger.Debug("duplicate message ignored", zap.String("msg_id", msgID))
		return
	}

	var textContent struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(deref(msg.Content)), &textContent); err != nil {
		s.logger.Warn("failed to parse content", zap.String("msg_id", msgID), zap.Error(err))
		return
	}
	text := strings.TrimSpace(textContent.Text)
	if text == "" {
		return
	}

	from := data.FeishuPrefix + openID
	s.logger.Info("inbound message", zap.String("from", from), zap.Int("len", len(text)))
	s.pipeline.Submit(from, text)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// markIfUnseen records msgID and reports whether it was new. Expired entries are dropped.
func (s *FeishuServer) markIfUnseen(msgID string) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	now := time.Now()

	cutoff := now.Add(-seenTTL)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}

	if _, exists := s.seenMsgs[msgID]; exists {
		return false
	}
	s.seenMsgs[msgID] = now
	return true
}
