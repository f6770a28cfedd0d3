// Package metrics exposes Prometheus metrics for the ladder.
//
//   - ladder_ticks_total{result}        ticks by outcome (ok|error|skipped)
//   - ladder_decisions_total{action}    decisions by action
//   - ladder_executions_total{kind,result} buy/sell/tip executions (confirmed|failed|benign|paused)
//   - ladder_rungs                      buys currently held
//   - ladder_pending_tip_lamports       accrued tip not yet paid out
//   - ladder_last_price                 last observed pair price
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	mtxTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_ticks_total",
			Help: "Ticks processed by result",
		},
		[]string{"result"},
	)

	mtxDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_decisions_total",
			Help: "Decisions taken",
		},
		[]string{"action"},
	)

	mtxExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_executions_total",
			Help: "Executions by kind and result",
		},
		[]string{"kind", "result"},
	)

	mtxRungs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ladder_rungs",
			Help: "Buys currently held in the ladder",
		},
	)

	mtxPendingTip = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ladder_pending_tip_lamports",
			Help: "Accrued tip awaiting payout",
		},
	)

	mtxLastPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ladder_last_price",
			Help: "Last observed pair price in quote currency",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxTicks, mtxDecisions, mtxExecutions)
	prometheus.MustRegister(mtxRungs, mtxPendingTip, mtxLastPrice)
}

func IncTick(result string)            { mtxTicks.WithLabelValues(result).Inc() }
func IncDecision(action string)        { mtxDecisions.WithLabelValues(action).Inc() }
func IncExecution(kind, result string) { mtxExecutions.WithLabelValues(kind, result).Inc() }
func SetRungs(n int)                   { mtxRungs.Set(float64(n)) }
func SetPendingTip(lamports uint64)    { mtxPendingTip.Set(float64(lamports)) }
func SetLastPrice(price float64)       { mtxLastPrice.Set(price) }

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, l *zap.Logger, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	l.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
