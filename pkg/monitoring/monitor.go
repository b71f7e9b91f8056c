package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)

	// PolicyDecisions 准入判定次数；result 为 allowed/blocked，rule_type 为拦截策略类型
	PolicyDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_policy_decisions_total",
			Help: "Total number of can-play decisions",
		},
		[]string{"result", "rule_type"},
	)

	QuestionSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_question_selections_total",
			Help: "Total number of question selections",
		},
		[]string{"outcome"},
	)

	AnswerValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_answer_validations_total",
			Help: "Total number of answer validations",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(PolicyDecisions)
		prometheus.MustRegister(QuestionSelections)
		prometheus.MustRegister(AnswerValidations)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
