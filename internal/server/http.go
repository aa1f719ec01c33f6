package server

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/controllers"
	"github.com/bionicotaku/cast-services-portal/internal/infrastructure/configloader"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c configloader.ServerConfig,
	gate http.FilterFunc,
	telemetry *Telemetry,
	uploads *controllers.UploadHandler,
	videos *controllers.VideoHandler,
	auth *controllers.AuthHandler,
	logger log.Logger,
) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
		http.Filter(
			metricsFilter(telemetry),
			gate,
		),
	}
	if c.Network != "" {
		opts = append(opts, http.Network(c.Network))
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if d := configloader.ParseTimeout(c.Timeout); d > 0 {
		opts = append(opts, http.Timeout(d))
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))

	srv.Handle("/readyz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		// 预留 readiness 校验钩子：若未来需要检查数据库等依赖，可在此处扩展。
		w.WriteHeader(stdhttp.StatusOK)
	}))

	if telemetry != nil && telemetry.PrometheusRegistry != nil {
		srv.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	}

	router := chi.NewRouter()
	router.Use(chimw.RealIP)
	uploads.Register(router)
	videos.Register(router)
	auth.Register(router)
	srv.HandlePrefix("/", router)

	return srv
}

// metricsFilter 以请求维度记录计数与时延，覆盖经由网关与业务路由的全部请求。
func metricsFilter(t *Telemetry) http.FilterFunc {
	return func(next stdhttp.Handler) stdhttp.Handler {
		if t == nil {
			return next
		}
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			attrs := metric.WithAttributes(
				attribute.String("kind", "server"),
				attribute.String("operation", r.Method+" "+r.URL.Path),
				attribute.String("code", strconv.Itoa(ww.Status())),
			)
			t.RequestCounter.Add(r.Context(), 1, attrs)
			t.SecondsHistogram.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}
}
