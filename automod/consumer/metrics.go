package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var updatesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "turnstile_updates_received",
	Help: "Number of chat updates received from the upstream API",
})

var updatesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
	Name: "turnstile_updates_duplicate",
	Help: "Number of chat updates skipped as already handled",
})
