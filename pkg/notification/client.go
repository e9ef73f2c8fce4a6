// Package notification 封装了向外部通知服务发送用户通知的 HTTP 客户端。
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"labot-admin-go/internal/config"
	"labot-admin-go/pkg/log"
	"labot-admin-go/pkg/metrics"
)

const notificationsPath = "/admin/notifications"

// Notification 是一条发给单个用户的通知。
type Notification struct {
	Level   string `json:"level"`
	Type    string `json:"type"`
	Message string `json:"message"`
	UserID  uint   `json:"user_id"`
}

// Notifier 发送通知。非 2xx 响应视为投递失败。
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// DeliveryError 表示通知服务返回了非 2xx 状态码。
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification service returned status %d: %s", e.StatusCode, e.Body)
}

type httpNotifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient 创建通知客户端。RatePerSecond 为 0 时不限流。
func NewClient(cfg config.NotificationConfig) Notifier {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpNotifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

func (c *httpNotifier) Notify(ctx context.Context, n Notification) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limiter: %w", err)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+notificationsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		log.Errorf("[Notifier] 发送通知失败, user_id: %d, error: %v", n.UserID, err)
		return fmt.Errorf("failed to call notification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.NotificationsTotal.WithLabelValues("rejected").Inc()
		log.Errorf("[Notifier] 通知服务返回非 2xx 状态码: %s, user_id: %d", resp.Status, n.UserID)
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	log.Infof("[Notifier] 通知已发送, user_id: %d", n.UserID)
	return nil
}
