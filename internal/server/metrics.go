package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the request, auth, and upload paths.
// Registered once on the default registry; /metrics serves them via
// promhttp.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fileshare_requests_total",
		Help: "Total number of HTTP requests by status class.",
	}, []string{"class"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fileshare_logins_total",
		Help: "Total number of login attempts by outcome.",
	}, []string{"outcome"})

	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_uploads_total",
		Help: "Total number of stored file uploads.",
	})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileshare_upload_bytes_total",
		Help: "Total bytes written by file uploads.",
	})
)

func recordRequest(status int) {
	requestsTotal.WithLabelValues(strconv.Itoa(status/100) + "xx").Inc()
}

func recordLogin(ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	loginsTotal.WithLabelValues(outcome).Inc()
}

func recordUpload(bytes int64) {
	uploadsTotal.Inc()
	uploadBytesTotal.Add(float64(bytes))
}
