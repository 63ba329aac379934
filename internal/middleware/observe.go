package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/auth"
)

// anonymous labels requests that reached a handler without an identity.
const anonymous = "anonymous"

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_api_requests_total",
			Help: "Admin API requests by route, status and authentication method",
		},
		[]string{"method", "route", "status", "auth"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admin_api_request_duration_seconds",
			Help:    "Admin API request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	apiAuthRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_api_auth_rejections_total",
			Help: "Admin API requests rejected with 401 or 403, by reason",
		},
		[]string{"reason"},
	)
)

// exchange is what the middleware chain learns about one request. Observe
// creates it; Auth and RequirePermission fill in the identity.
type exchange struct {
	requestID  string
	subject    string
	authMethod string
	denied     string
	status     int
}

type exchangeKey struct{}

func exchangeFrom(ctx context.Context) *exchange {
	ex, _ := ctx.Value(exchangeKey{}).(*exchange)
	return ex
}

// RequestIDFromContext returns the id Observe assigned to the request.
func RequestIDFromContext(ctx context.Context) string {
	if ex := exchangeFrom(ctx); ex != nil {
		return ex.requestID
	}
	return ""
}

// noteIdentity records who the request runs as.
func noteIdentity(ctx context.Context, info *auth.AuthInfo) {
	if ex := exchangeFrom(ctx); ex != nil {
		ex.subject = info.Subject
		ex.authMethod = string(info.Method)
	}
}

// noteDenied records the permission a request lacked.
func noteDenied(ctx context.Context, permission string) {
	if ex := exchangeFrom(ctx); ex != nil {
		ex.denied = permission
	}
}

// statusWriter remembers the first status written.
type statusWriter struct {
	http.ResponseWriter
	ex *exchange
}

func (w *statusWriter) WriteHeader(code int) {
	if w.ex.status == 0 {
		w.ex.status = code
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.ex.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// quietPaths are health and scrape endpoints logged at Debug level.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Observe propagates the client's X-Request-ID or assigns one, then logs the
// finished request with the identity it ran as. With metrics enabled it also
// records request counts and durations labelled by route template and
// authentication method. It must be the outermost middleware.
func Observe(logger *zap.Logger, metrics bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ex := &exchange{requestID: r.Header.Get(RequestIDHeader)}
			if ex.requestID == "" {
				ex.requestID = uuid.New().String()
				r.Header.Set(RequestIDHeader, ex.requestID)
			}
			w.Header().Set(RequestIDHeader, ex.requestID)

			ctx := context.WithValue(r.Context(), exchangeKey{}, ex)
			next.ServeHTTP(&statusWriter{ResponseWriter: w, ex: ex}, r.WithContext(ctx))

			if ex.status == 0 {
				ex.status = http.StatusOK
			}
			if ex.authMethod == "" {
				ex.authMethod = anonymous
			}
			route := routeTemplate(r)
			elapsed := time.Since(start)

			if metrics {
				apiRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ex.status), ex.authMethod).Inc()
				apiRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			}

			logRequest(logger, r, route, ex, elapsed)
		})
	}
}

func logRequest(logger *zap.Logger, r *http.Request, route string, ex *exchange, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("request_id", ex.requestID),
		zap.String("method", r.Method),
		zap.String("route", route),
		zap.String("path", r.URL.Path),
		zap.Int("status", ex.status),
		zap.Duration("duration", elapsed),
		zap.String("auth", ex.authMethod),
	}
	if ex.subject != "" {
		fields = append(fields, zap.String("subject", ex.subject))
	}
	if ex.denied != "" {
		fields = append(fields, zap.String("denied_permission", ex.denied))
	}

	switch {
	case ex.status >= http.StatusInternalServerError:
		logger.Error("api request", fields...)
	case quietPaths[r.URL.Path]:
		logger.Debug("api request", fields...)
	default:
		logger.Info("api request", fields...)
	}
}

// routeTemplate returns the matched mux route template, e.g. /person/{id},
// falling back to the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}
