// Package metrics 叫号与分配相关的 Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder 指标记录器；nil Recorder 的所有方法均为空操作
type Recorder struct {
	planRuns        *prometheus.CounterVec
	planDecisions   *prometheus.CounterVec
	planDuration    prometheus.Histogram
	scheduleWarns   *prometheus.CounterVec
	requestsChanged *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewRecorder 创建并注册指标；reg 为 nil 时使用默认注册表
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		planRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_assignment_runs_total",
			Help: "Assignment recalculation runs by outcome.",
		}, []string{"outcome"}),
		planDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_assignment_decisions_total",
			Help: "Per-request assignment results (assigned, reassigned, failed).",
		}, []string{"result"}),
		planDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_assignment_duration_seconds",
			Help:    "Duration of one assignment recalculation run.",
			Buckets: prometheus.DefBuckets,
		}),
		scheduleWarns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_schedule_warnings_total",
			Help: "Scheduler degradations by kind.",
		}, []string{"kind"}),
		requestsChanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_request_transitions_total",
			Help: "Operator-driven request transitions by action.",
		}, []string{"action"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	for _, c := range []prometheus.Collector{r.planRuns, r.planDecisions, r.planDuration, r.scheduleWarns, r.requestsChanged, r.httpDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObservePlan 记录一次分配重算
func (r *Recorder) ObservePlan(outcome string, assigned, reassigned, failed int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.planRuns.WithLabelValues(outcome).Inc()
	r.planDecisions.WithLabelValues("assigned").Add(float64(assigned))
	r.planDecisions.WithLabelValues("reassigned").Add(float64(reassigned))
	r.planDecisions.WithLabelValues("failed").Add(float64(failed))
	r.planDuration.Observe(elapsed.Seconds())
}

// ScheduleWarning 记录一次排序降级
func (r *Recorder) ScheduleWarning(kind string) {
	if r == nil {
		return
	}
	r.scheduleWarns.WithLabelValues(kind).Inc()
}

// RequestTransition 记录一次操作员动作
func (r *Recorder) RequestTransition(action string) {
	if r == nil {
		return
	}
	r.requestsChanged.WithLabelValues(action).Inc()
}

// ObserveHTTP 记录一次 HTTP 请求耗时；status 按 2xx/4xx/5xx 归类
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	class := strconv.Itoa(status/100) + "xx"
	r.httpDuration.WithLabelValues(method, route, class).Observe(elapsed.Seconds())
}
