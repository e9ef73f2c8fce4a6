// Package metrics 定义了服务导出的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheGroupSavesTotal 按操作（create/edit）与结果统计缓存组保存次数。
	CacheGroupSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labot_admin",
		Name:      "cache_group_saves_total",
		Help:      "Cache group saves by action and outcome.",
	}, []string{"action", "outcome"})

	// ReconcileMatchesTotal 统计对账时找到的历史提问，outcome 为 notified/skipped/failed。
	ReconcileMatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labot_admin",
		Name:      "reconcile_matches_total",
		Help:      "Historical askers found during reconciliation by outcome.",
	}, []string{"outcome"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labot_admin",
		Name:      "notifications_total",
		Help:      "Notification delivery attempts by result.",
	}, []string{"result"})

	DraftDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "labot_admin",
		Name:      "draft_duration_seconds",
		Help:      "Time spent drafting answers for all requested regions.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labot_admin",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)
