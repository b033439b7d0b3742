package metrics

import (
	"strconv"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	PlacementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compensation_placements_total",
			Help: "Total number of committed genealogy placements",
		},
	)

	PairingSettlementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compensation_pairing_settlements_total",
			Help: "Total number of settled pairing units",
		},
	)

	CommissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_commissions_total",
			Help: "Total number of unilevel commissions posted",
		},
		[]string{"level"},
	)

	PayoutAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_payout_amount_total",
			Help: "Sum of income posted to the ledger",
		},
		[]string{"source"},
	)

	DuplicateEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_duplicate_events_total",
			Help: "Total number of redelivered events skipped",
		},
		[]string{"kind"},
	)

	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compensation_http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordPlacement counts a committed placement and the pairing units it settled
func RecordPlacement(settled int, total decimal.Decimal) {
	PlacementsTotal.Inc()
	if settled > 0 {
		PairingSettlementsTotal.Add(float64(settled))
		PayoutAmountTotal.WithLabelValues(string(models.IncomeSourcePairing)).Add(total.InexactFloat64())
	}
}

// RecordDistribution counts the commissions of one purchase
func RecordDistribution(commissions []models.CommissionRecord) {
	for _, commission := range commissions {
		CommissionsTotal.WithLabelValues(strconv.Itoa(commission.Level)).Inc()
		PayoutAmountTotal.WithLabelValues(string(models.IncomeSourceUnilevel)).Add(commission.Amount.InexactFloat64())
	}
}

func RecordDuplicate(kind store.EventKind) {
	DuplicateEventsTotal.WithLabelValues(string(kind)).Inc()
}
