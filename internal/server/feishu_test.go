package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func feishuEvent(msgID, chatType, msgType, content, openID string) *larkim.P2MessageReceiveV1 {
	return &larkim.P2MessageReceiveV1{
		Event: &larkim.P2MessageReceiveV1Data{
			Sender: &larkim.EventSender{
				SenderId: &larkim.UserId{OpenId: strPtr(openID)},
			},
			Message: &larkim.EventMessage{
				MessageId:   strPtr(msgID),
				ChatType:    strPtr(chatType),
				MessageType: strPtr(msgType),
				Content:     strPtr(content),
			},
		},
	}
}

func TestFeishuServer_SubmitsDirectText(t *testing.T) {
	sub := &mockSubmitter{}
	s := NewFeishuServer("app", "secret", sub, zap.NewNop())

	s.handleMessage(feishuEvent("m1", "p2p", "text", `{"text":" olive oil is finished "}`, "ou_1"))

	assert.Equal(t, [][2]string{{"feishu:ou_1", "olive oil is finished"}}, sub.messages)
}

func TestFeishuServer_DropsDuplicates(t *testing.T) {
	sub := &mockSubmitter{}
	s := NewFeishuServer("app", "secret", sub, zap.NewNop())

	ev := feishuEvent("m1", "p2p", "text", `{"text":"hi"}`, "ou_1")
	s.handleMessage(ev)
	s.handleMessage(ev)

	assert.Len(t, sub.messages, 1)
}

func TestFeishuServer_ConcurrentRedeliverySubmitsOnce(t *testing.T) {
	sub := &mockSubmitter{}
	s := NewFeishuServer("app", "secret", sub, zap.NewNop())

	for round := 0; round < 50; round++ {
		ev := feishuEvent(fmt.Sprintf("m%d", round), "p2p", "text", `{"text":"hi"}`, "ou_1")
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.handleMessage(ev)
			}()
		}
		wg.Wait()
	}

	assert.Len(t, sub.messages, 50)
}

func TestFeishuServer_MarkIfUnseen(t *testing.T) {
	s := NewFeishuServer("app", "secret", &mockSubmitter{}, zap.NewNop())

	assert.True(t, s.markIfUnseen("m1"))
	assert.False(t, s.markIfUnseen("m1"))

	// Entries older than the TTL are forgotten
	s.seenMsgs["m1"] = time.Now().Add(-seenTTL - time.Second)
	assert.True(t, s.markIfUnseen("m1"))
}

func TestFeishuServer_IgnoresUnsupported(t *testing.T) {
	sub := &mockSubmitter{}
	s := NewFeishuServer("app", "secret", sub, zap.NewNop())

	s.handleMessage(feishuEvent("m1", "group", "text", `{"text":"hi"}`, "ou_1"))
	s.handleMessage(feishuEvent("m2", "p2p", "image", `{"image_key":"k"}`, "ou_1"))
	s.handleMessage(feishuEvent("m3", "p2p", "text", `not json`, "ou_1"))
	s.handleMessage(feishuEvent("m4", "p2p", "text", `{"text":"hi"}`, ""))
	s.handleMessage(nil)

	assert.Empty(t, sub.messages)
}
