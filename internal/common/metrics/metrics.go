// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"admissions-wizard/internal/models"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// ObserveJob records one finished worker job. An empty errorCode counts as
// completed.
func ObserveJob(taskType, errorCode string, started time.Time) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(started).Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}

// WizardMetrics records application wizard activity. It satisfies the
// controller's Recorder.
type WizardMetrics struct {
	StepTransitions    *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Attachments        *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
	SessionsActive     prometheus.Gauge
	HTTPRequests       *prometheus.HistogramVec
}

// NewWizardMetrics registers the wizard collectors with reg. A nil reg uses the
// default registerer.
func NewWizardMetrics(reg prometheus.Registerer) *WizardMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &WizardMetrics{
		StepTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wizard_step_transitions_total",
				Help: "Step transitions by origin and destination step",
			},
			[]string{"from", "to"},
		),
		ValidationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wizard_validation_failures_total",
				Help: "Blocked advances by step and validation strategy",
			},
			[]string{"step", "strategy"},
		),
		Attachments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wizard_attachments_total",
				Help: "Uploaded files by slot and outcome",
			},
			[]string{"slot", "outcome"},
		),
		Submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wizard_submissions_total",
				Help: "Submission attempts by result",
			},
			[]string{"result"},
		),
		SubmissionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "wizard_submission_duration_seconds",
			Help:    "Duration of submission attempts",
			Buckets: prometheus.DefBuckets,
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "wizard_sessions_active",
			Help: "Open wizard sessions",
		}),
		HTTPRequests: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wizard_http_request_duration_seconds",
				Help: "Wizard API request duration by route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (m *WizardMetrics) StepTransition(from, to models.Step) {
	m.StepTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *WizardMetrics) ValidationFailed(step models.Step, strategy string, _ int) {
	m.ValidationFailures.WithLabelValues(step.String(), strategy).Inc()
}

func (m *WizardMetrics) AttachmentsUploaded(slot string, accepted, rejected int) {
	if accepted > 0 {
		m.Attachments.WithLabelValues(slot, "accepted").Add(float64(accepted))
	}
	if rejected > 0 {
		m.Attachments.WithLabelValues(slot, "rejected").Add(float64(rejected))
	}
}

func (m *WizardMetrics) SubmissionFinished(success bool, d time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	m.Submissions.WithLabelValues(result).Inc()
	m.SubmissionDuration.Observe(d.Seconds())
}

// ObserveRequest records one served API request.
func (m *WizardMetrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
