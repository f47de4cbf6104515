package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tradesense",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected candle-stream clients",
		},
	)

	StreamDroppedFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tradesense",
			Subsystem: "stream",
			Name:      "dropped_frames_total",
			Help:      "Frames dropped because a client could not keep up",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StreamClients, StreamDroppedFrames)
	})
}
