package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics groups the Prometheus collectors of the booking core.
type Metrics struct {
	SchedulerTicks     prometheus.Counter
	TaskTransitions    *prometheus.CounterVec
	BookingAttempts    *prometheus.CounterVec
	BackendCallSeconds *prometheus.HistogramVec
	MonitorCycles      *prometheus.CounterVec
	UpdateProcessing   prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SchedulerTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "padelbot_scheduler_ticks_total",
			Help: "Scheduler tick count.",
		}),
		TaskTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "padelbot_task_transitions_total",
			Help: "Task state transitions.",
		}, []string{"from", "to"}),
		BookingAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "padelbot_booking_attempts_total",
			Help: "Booking attempts by club and tri-state result.",
		}, []string{"club", "result"}),
		BackendCallSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "padelbot_backend_call_seconds",
			Help:    "Duration of one backend operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"club", "operation"}),
		MonitorCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "padelbot_monitor_cycles_total",
			Help: "Auto monitor cycles by club and outcome.",
		}, []string{"club", "outcome"}),
		UpdateProcessing: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "padelbot_update_processing_seconds",
			Help:    "Time spent processing chat updates.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Serve exposes /metrics and /health on the given port until ctx is done.
func Serve(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}
