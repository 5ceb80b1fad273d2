package models

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	spaceLabel     = "space"
	operationLabel = "operation"
)

var (
	spaceCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "space_count",
		Help: "The number of spaces.",
	})

	spaceCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "space_count_total",
		Help: "The total number of spaces.",
	})

	spaceEntityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "space_entity_count",
		Help: "The number of entities in a space.",
	}, []string{spaceLabel})

	spaceOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "space_operation_latency",
		Help: "The time to run an operation on a space octree.",
	}, []string{
		spaceLabel,
		operationLabel,
	})
)

func instrumentIncreaseSpaceGauge() {
	spaceCount.Inc()
}

func instrumentDecreaseSpaceGauge() {
	spaceCount.Dec()
}

func instrumentCountSpace() {
	spaceCountTotal.Inc()
}

func instrumentEntityGauge(space string, count int) {
	spaceEntityCount.
		With(prometheus.Labels{spaceLabel: space}).
		Set(float64(count))
}

func instrumentDeleteEntityGauge(space string) {
	spaceEntityCount.Delete(prometheus.Labels{spaceLabel: space})
}

func instrumentOperation(space, operation string, start time.Time) {
	spaceOperationLatency.
		With(prometheus.Labels{
			spaceLabel:     space,
			operationLabel: operation,
		}).
		Observe(time.Since(start).Seconds())
}
