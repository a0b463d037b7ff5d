package protocol

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Metrics is the registry holding the metrics about message delivery.
	Metrics = prometheus.NewRegistry()

	// MessagesSent counts the messages handed to the broadcaster.
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cmp_messages_sent",
		Help: "Number of protocol messages sent",
	}, []string{"protocol"})

	// MessagesReceived counts the messages stored for a later fetch.
	MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cmp_messages_received",
		Help: "Number of protocol messages received",
	}, []string{"protocol"})

	// MessagesRejected counts the inbound messages which were dropped.
	MessagesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cmp_messages_rejected",
		Help: "Number of protocol messages rejected",
	}, []string{"reason"})

	// FetchTimeouts counts the rounds which failed waiting for messages.
	FetchTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cmp_fetch_timeouts",
		Help: "Number of rounds which timed out waiting for messages",
	}, []string{"protocol"})

	// FetchDuration is the time spent waiting for the messages of a round.
	FetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cmp_fetch_duration_seconds",
		Help:    "Time spent waiting for all messages of a round",
		Buckets: prometheus.DefBuckets,
	}, []string{"protocol"})
)

func init() {
	Metrics.MustRegister(MessagesSent, MessagesReceived, MessagesRejected, FetchTimeouts, FetchDuration)
}
