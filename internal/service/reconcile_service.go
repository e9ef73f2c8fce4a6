// Package service 提供了缓存组管理相关的业务逻辑。
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"labot-admin-go/internal/config"
	"labot-admin-go/internal/model"
	"labot-admin-go/internal/repository"
	"labot-admin-go/pkg/log"
	"labot-admin-go/pkg/metrics"
	"labot-admin-go/pkg/notification"
)

// ResolveAnswer 返回某个区域应当看到的答案：先精确匹配区域，再回退到 nacional。
// 两者都没有时 ok 为 false。
func ResolveAnswer(answers model.AnswerByRegion, region string) (answer string, ok bool) {
	if region != "" {
		if answer, ok = answers[region]; ok {
			return answer, true
		}
	}
	answer, ok = answers[model.NationalRegion]
	return answer, ok
}

// BuildCorrectionMessage 生成发给历史提问者的更正通知。
// askedAt 应当已经转换到展示用的时区。
func BuildCorrectionMessage(askedAt time.Time, topicTitle, question, answer string) string {
	return fmt.Sprintf("El %s hiciste la siguiente pregunta en el %s: \n\n**TU PREGUNTA**: %s\n\n"+
		"y te dimos una respuesta incorrecta o incompleta. Hemos revisado la respuesta y la correcta es:\n\n```\n%s\n```",
		model.SpanishLongDate(askedAt), topicTitle, question, answer)
}

// ReconcileFailure 记录一次失败的区域解析或通知投递。
type ReconcileFailure struct {
	MessageID uint   `json:"message_id"`
	UserID    uint   `json:"user_id"`
	Error     string `json:"error"`
}

// ReconcileReport 汇总一次对账的结果。
// NotAttempted 只在 sequential 模式下因提前停止而大于 0。
type ReconcileReport struct {
	Matched      int                `json:"matched"`
	Notified     int                `json:"notified"`
	Skipped      int                `json:"skipped"`
	NotAttempted int                `json:"not_attempted"`
	Failures     []ReconcileFailure `json:"failures"`
}

// ReconcileService 把更新后的答案推送给曾经提出过同一问题的用户。
type ReconcileService interface {
	// Reconcile 必须在缓存组提交之后调用。
	// 有投递失败时同时返回报告和聚合后的错误。
	Reconcile(ctx context.Context, group *model.CacheGroup) (*ReconcileReport, error)
}

// ReconcileOptions 配置通知内容与派发策略。
type ReconcileOptions struct {
	Dispatch       string
	MaxConcurrency int
	Level          string
	Type           string
	Location       *time.Location
}

type reconcileService struct {
	historyRepo repository.HistoricalQuestionRepository
	resolver    repository.RegionResolver
	notifier    notification.Notifier
	opts        ReconcileOptions
}

// NewReconcileService 创建一个新的 ReconcileService 实例。
func NewReconcileService(historyRepo repository.HistoricalQuestionRepository, resolver repository.RegionResolver,
	notifier notification.Notifier, opts ReconcileOptions) ReconcileService {
	if opts.Dispatch == "" {
		opts.Dispatch = config.DispatchConcurrent
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &reconcileService{historyRepo: historyRepo, resolver: resolver, notifier: notifier, opts: opts}
}

type askerOutcome int

const (
	outcomeNotAttempted askerOutcome = iota
	outcomeNotified
	outcomeSkipped
	outcomeFailed
)

func (s *reconcileService) Reconcile(ctx context.Context, group *model.CacheGroup) (*ReconcileReport, error) {
	rows, err := s.historyRepo.FindByQuestion(ctx, group.Question)
	if err != nil {
		return nil, err
	}
	log.Infof("[ReconcileService] 缓存组 %d 找到 %d 条历史提问, dispatch: %s", group.ID, len(rows), s.opts.Dispatch)

	answers := group.Answers()
	outcomes := make([]askerOutcome, len(rows))
	errs := make([]error, len(rows))

	if s.opts.Dispatch == config.DispatchSequential {
		for i := range rows {
			outcomes[i], errs[i] = s.reconcileOne(ctx, &rows[i], answers)
			if outcomes[i] == outcomeFailed {
				break
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.opts.MaxConcurrency)
		for i := range rows {
			i := i
			g.Go(func() error {
				outcomes[i], errs[i] = s.reconcileOne(ctx, &rows[i], answers)
				return nil
			})
		}
		_ = g.Wait()
	}

	report := &ReconcileReport{Matched: len(rows), Failures: []ReconcileFailure{}}
	var combined error
	for i, outcome := range outcomes {
		switch outcome {
		case outcomeNotified:
			report.Notified++
			metrics.ReconcileMatchesTotal.WithLabelValues("notified").Inc()
		case outcomeSkipped:
			report.Skipped++
			metrics.ReconcileMatchesTotal.WithLabelValues("skipped").Inc()
		case outcomeFailed:
			report.Failures = append(report.Failures, ReconcileFailure{
				MessageID: rows[i].MessageID,
				UserID:    rows[i].UserID,
				Error:     errs[i].Error(),
			})
			combined = multierr.Append(combined, errs[i])
			metrics.ReconcileMatchesTotal.WithLabelValues("failed").Inc()
		default:
			report.NotAttempted++
		}
	}

	log.Infow("[ReconcileService] 对账完成",
		"group_id", group.ID,
		"matched", report.Matched,
		"notified", report.Notified,
		"skipped", report.Skipped,
		"failed", len(report.Failures),
		"not_attempted", report.NotAttempted)
	return report, combined
}

// reconcileOne 解析单个提问者的区域并在有答案时发送通知。
func (s *reconcileService) reconcileOne(ctx context.Context, row *model.HistoricalQuestion, answers model.AnswerByRegion) (askerOutcome, error) {
	region, err := s.resolver.RegionForTopic(ctx, row.TopicID)
	if err != nil {
		log.Errorf("[ReconcileService] 解析区域失败, message_id: %d, topic_id: %d, error: %v", row.MessageID, row.TopicID, err)
		return outcomeFailed, fmt.Errorf("message %d: %w", row.MessageID, err)
	}
	row.Region = region

	answer, ok := ResolveAnswer(answers, region)
	if !ok || answer == "" {
		log.Debugf("[ReconcileService] 区域 '%s' 没有可用答案, 跳过 message_id: %d", region, row.MessageID)
		return outcomeSkipped, nil
	}

	n := notification.Notification{
		Level:   s.opts.Level,
		Type:    s.opts.Type,
		Message: BuildCorrectionMessage(row.CreatedAt.In(s.opts.Location), row.TopicTitle, model.NormalizeQuestion(row.Content), answer),
		UserID:  row.UserID,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		return outcomeFailed, fmt.Errorf("notify user %d about message %d: %w", row.UserID, row.MessageID, err)
	}
	return outcomeNotified, nil
}
