// Package metrics expone métricas Prometheus del servidor: HTTP y eventos
// del protocolo de autenticación de plugins.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los collectors. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	pluginAuthTotal  *prometheus.CounterVec
	validationsTotal *prometheus.CounterVec
	keyRotations     prometheus.Counter
	reauthTotal      *prometheus.CounterVec
	rateLimitedTotal *prometheus.CounterVec
}

// New registra los collectors en reg. Si reg es nil se crea un registry
// propio con los collectors de proceso y runtime de Go.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"}),
		pluginAuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noke_plugin_auth_total",
			Help: "Operaciones del protocolo de plugins por resultado",
		}, []string{"op", "result"}),
		validationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noke_plugin_validations_total",
			Help: "Validaciones de credenciales del plugin por modo (rolling|static) y resultado",
		}, []string{"mode", "result"}),
		keyRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noke_rolling_key_rotations_total",
			Help: "Rolling keys rotadas por validaciones exitosas",
		}),
		reauthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noke_require_reauth_total",
			Help: "Respuestas que exigieron re-autorizar el plugin",
		}, []string{"reason"}),
		rateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noke_rate_limited_total",
			Help: "Requests rechazadas por rate limit",
		}, []string{"scope"}),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequestsTotal, m.httpRequestDuration, m.httpInflight,
		m.pluginAuthTotal, m.validationsTotal, m.keyRotations, m.reauthTotal, m.rateLimitedTotal,
	} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register agrega un collector adicional (ej: stats del pool de DB).
func (m *Metrics) Register(c prometheus.Collector) error {
	if m == nil {
		return nil
	}
	reg, ok := m.gatherer.(prometheus.Registerer)
	if !ok {
		return nil
	}
	return registerCollector(reg, c)
}

// Handler sirve /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// registerCollector registra el collector, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// PluginAuth cuenta una operación del protocolo. result: ok|waiting|error|...
func (m *Metrics) PluginAuth(op, result string) {
	if m == nil {
		return
	}
	m.pluginAuthTotal.WithLabelValues(op, result).Inc()
}

// Validation cuenta una validación de credenciales del plugin.
func (m *Metrics) Validation(mode, result string) {
	if m == nil {
		return
	}
	m.validationsTotal.WithLabelValues(mode, result).Inc()
}

// KeyRotated cuenta una rotación de rolling key.
func (m *Metrics) KeyRotated() {
	if m == nil {
		return
	}
	m.keyRotations.Inc()
}

// RequireReauth cuenta una respuesta con requireReauth.
func (m *Metrics) RequireReauth(reason string) {
	if m == nil {
		return
	}
	m.reauthTotal.WithLabelValues(reason).Inc()
}

// RateLimited cuenta un rechazo del rate limiter.
func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(scope).Inc()
}

// Middleware instrumenta requests HTTP (contadores, latencia, inflight).
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		pathLabel := NormalizePath(r.URL.Path)

		m.httpInflight.WithLabelValues(method, pathLabel).Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			m.httpInflight.WithLabelValues(method, pathLabel).Dec()
			m.httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			m.httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

var (
	uuidSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	hexSegmentRE   = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

// NormalizePath reemplaza segmentos dinámicos (ids, tokens) por ":param"
// para acotar la cardinalidad de la label path.
func NormalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	var out []string
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) {
			out = append(out, ":param")
		} else {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 {
		return true
	}
	if uuidSegmentRE.MatchString(seg) || hexSegmentRE.MatchString(seg) || tokenSegmentRE.MatchString(seg) {
		return true
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}
