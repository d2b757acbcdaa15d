package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	TickLatency      = metric.NewHistogram("1m1s")
	UplinkPingRTT    = metric.NewHistogram("1m1s")
	SendsPerSecond   = metric.NewCounter("10s1s")
	RecvsPerSecond   = metric.NewCounter("10s1s")
	SendFailures     = metric.NewCounter("10s1s")
	RelaysPerSecond  = metric.NewCounter("10s1s")
	DroppedFrames    = metric.NewCounter("10s1s")
	UplinkCheckFails = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("ember:TickLatency (µs)", TickLatency)
	expvar.Publish("ember:UplinkPingRTT (µs)", UplinkPingRTT)
	expvar.Publish("ember:Sends/s", SendsPerSecond)
	expvar.Publish("ember:Recvs/s", RecvsPerSecond)
	expvar.Publish("ember:SendFailures/s", SendFailures)
	expvar.Publish("ember:Relays/s", RelaysPerSecond)
	expvar.Publish("ember:DroppedFrames/s", DroppedFrames)
	expvar.Publish("ember:UplinkCheckFails/s", UplinkCheckFails)
}
