package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"
	PurchaseTotal              = "offering_purchases_total"
	DrawTotal                  = "offering_draws_total"
	RaffleSlotSoldTotal        = "raffle_slots_sold_total"
	RaffleClosedTotal          = "raffles_closed_total"
	VaultActionTotal           = "vault_actions_total"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"route", "status_code"}),
		PurchaseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: PurchaseTotal,
			Help: "Count of offering purchases by outcome",
		}, []string{"status"}),
		DrawTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: DrawTotal,
			Help: "Count of cards granted by draws, by tier",
		}, []string{"tier"}),
		RaffleSlotSoldTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RaffleSlotSoldTotal,
			Help: "Count of raffle slots sold",
		}, []string{}),
		RaffleClosedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RaffleClosedTotal,
			Help: "Count of raffles resolved and closed",
		}, []string{}),
		VaultActionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: VaultActionTotal,
			Help: "Count of vault card actions by kind and outcome",
		}, []string{"action", "status"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"route", "status_code"}),
	}
)
