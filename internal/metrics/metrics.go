// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute はどのルートにも一致しなかったリクエストのrouteラベル。
// 任意のパスをラベルにすると系列数が際限なく増えるため集約する。
const unmatchedRoute = "unmatched"

// Collector はPrometheusメトリクスを収集する実装。
// user.Recorderとfavorite.Recorderを満たす。
type Collector struct {
	usersRegistered prometheus.Counter
	favoritesAdded  prometheus.Counter
	conflicts       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "homefav_users_registered_total",
			Help: "登録されたユーザーの合計数",
		}),
		favoritesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "homefav_favorites_added_total",
			Help: "追加されたお気に入りの合計数",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefav_conflicts_total",
			Help: "一意制約違反の種別ごとの発生数",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefav_http_requests_total",
			Help: "HTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homefav_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.usersRegistered,
		c.favoritesAdded,
		c.conflicts,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

// UserRegistered はユーザー登録を記録する。
func (c *Collector) UserRegistered() {
	c.usersRegistered.Inc()
}

// FavoriteAdded はお気に入り追加を記録する。
func (c *Collector) FavoriteAdded() {
	c.favoritesAdded.Inc()
}

// Conflict は一意制約違反を種別ごとに記録する。
func (c *Collector) Conflict(kind string) {
	c.conflicts.WithLabelValues(kind).Inc()
}

// Middleware はHTTPリクエスト数と処理時間を記録するミドルウェアを返す。
// routeラベルにはchiのルートパターンを使用する。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
