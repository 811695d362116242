package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/tauraamui/dragonrelay/pkg/broadcast"
	"github.com/tauraamui/dragonrelay/pkg/dragon"
	"github.com/tauraamui/dragonrelay/pkg/log"
	"github.com/tauraamui/dragonrelay/pkg/metrics"
	"github.com/tauraamui/dragonrelay/pkg/stream"
)

const shutdownConfirmation = "Capture released"

// FeedController is the part of the relay the HTTP surface drives.
type FeedController interface {
	Listen() (*broadcast.Listener, error)
	Shutdown() <-chan interface{}
	Status() dragon.Status
}

type Options struct {
	MetricsEnabled bool
}

func New(fc FeedController, opts Options) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/video_feed", videoFeedHandler(fc)).Methods(http.MethodGet)
	r.HandleFunc("/shutdown", shutdownHandler(fc)).Methods(http.MethodPost)
	r.HandleFunc("/status", statusHandler(fc)).Methods(http.MethodGet)
	if opts.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// NewHTTPServer has no write timeout, a viewer's response lasts for as
// long as the feed runs.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func videoFeedHandler(fc FeedController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		l, err := fc.Listen()
		if err != nil {
			log.Warn("Refusing viewer %s: %v", r.RemoteAddr, err)
			http.Error(w, "video feed not available", http.StatusServiceUnavailable)
			return
		}

		session := stream.NewSession(l, stream.Boundary)
		header := w.Header()
		header.Set("Content-Type", stream.ContentType(stream.Boundary))
		header.Set("Cache-Control", "no-cache")
		header.Set("Pragma", "no-cache")
		header.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		log.Info("Viewer %s attached to video feed", r.RemoteAddr)
		if err := session.Serve(r.Context(), w, flusher.Flush); err != nil {
			log.Debug("Viewer %s detached: %v", r.RemoteAddr, err)
			return
		}
		log.Info("Viewer %s detached", r.RemoteAddr)
	}
}

func shutdownHandler(fc FeedController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Shutdown requested by %s", r.RemoteAddr)
		select {
		case <-fc.Shutdown():
		case <-r.Context().Done():
			log.Warn("Shutdown requested by %s left before capture was released: %v", r.RemoteAddr, r.Context().Err())
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, shutdownConfirmation)
	}
}

func statusHandler(fc FeedController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(fc.Status()); err != nil {
			log.Error("Unable to write status response: %v", err)
		}
	}
}
