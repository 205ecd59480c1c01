package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz/repo"
)

// FeishuPrefix addresses Feishu users by open_id, e.g. feishu:ou_xxx
const FeishuPrefix = "feishu:"

// feishuRepo sends text messages to Feishu users
type feishuRepo struct {
	larkCli *lark.Client
	logger  *zap.Logger
}

// NewFeishuRepo creates a Feishu message repository
func NewFeishuRepo(appID, appSecret string, logger *zap.Logger) repo.MessageRepo {
	return &feishuRepo{
		larkCli: lark.NewClient(appID, appSecret),
		logger:  logger.Named("feishu"),
	}
}

// Send delivers body to a feishu: address
func (r *feishuRepo) Send(ctx context.Context, to, body string) error {
	openID := strings.TrimPrefix(to, FeishuPrefix)
	if openID == "" {
		return fmt.Errorf("empty feishu open_id in %q", to)
	}

	content, err := json.Marshal(map[string]string{"text": body})
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeOpenId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := r.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	r.logger.Debug("message sent", zap.String("to", to))
	return nil
}
