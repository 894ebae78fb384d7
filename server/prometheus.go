package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusWSConnTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_conn_total",
	Help: "Total number of opened websocket connections",
})

var prometheusWSConnActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ws_conn_active",
	Help: "Total number of active websocket connections",
})

var prometheusWSConnErrTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_conn_err_total",
	Help: "Total number of errored out websocket connections",
})

var prometheusWSConnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "ws_conn_duration",
	Help: "Duration of websocket connections",
})

var prometheusRoomJoinTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_room_join_total",
	Help: "Total number of accepted room joins",
})

var prometheusRoomLeaveTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_room_leave_total",
	Help: "Total number of room leaves",
})

var prometheusMessagesRoutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_messages_routed_total",
	Help: "Total number of signaling messages delivered to their target",
}, []string{"event"})

var prometheusMessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_messages_dropped_total",
	Help: "Total number of signaling messages that were not delivered",
}, []string{"event", "reason"})

var prometheusWriteQueueFullTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_write_queue_full_total",
	Help: "Total number of outbound messages dropped because of a full queue",
})
