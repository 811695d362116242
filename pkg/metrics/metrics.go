package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dragonrelay"

var (
	FramesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_captured_total",
		Help:      "Raw frames read from the capture device.",
	})
	FramesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_published_total",
		Help:      "Encoded frames published to viewers.",
	})
	EncodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "encode_errors_total",
		Help:      "Frames dropped because they could not be encoded.",
	})
	FramesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_skipped_total",
		Help:      "Published frames replaced before a viewer picked them up.",
	})
	ChunksWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_written_total",
		Help:      "Multipart chunks written to viewer connections.",
	})
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Viewers currently attached to the video feed.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
