package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/market-scanner/internal/service/notification"
	"github.com/go-resty/resty/v2"
)

const apiBase = "https://api.telegram.org"

type Service struct {
	cli    *resty.Client
	token  string
	chatID int64
}

var _ notification.Notifier = (*Service)(nil)

func NewService(token string, chatID int64) *Service {
	return &Service{
		cli: resty.New().
			SetBaseURL(apiBase).
			SetTimeout(15 * time.Second),
		token:  token,
		chatID: chatID,
	}
}

func (s *Service) Notify(ctx context.Context, text string) error {
	resp, err := s.cli.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": fmt.Sprintf("%d", s.chatID),
			"text":    text,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", s.token))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram send: http %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
