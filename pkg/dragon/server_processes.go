package dragon

import (
	"github.com/tauraamui/dragonrelay/pkg/broadcast"
	"github.com/tauraamui/dragonrelay/pkg/camera"
	"github.com/tauraamui/dragonrelay/pkg/dragon/process"
)

func (s *Server) setupProducer(conn camera.Connection) {
	b := broadcast.New()
	encoder := s.videoBackend.NewEncoder(s.config.Camera.JPEGQuality)
	s.cam = conn
	s.broadcaster = b
	s.producer = process.NewProducerProcess(
		conn, encoder, b, process.ProducerSettings{FPS: s.config.Camera.FPS},
	)
	s.producer.Setup()
}

func (s *Server) runProducer() {
	s.producer.Start()
}

func (s *Server) shutdownProducer(proc process.ProducerProcess) <-chan interface{} {
	if proc == nil {
		done := make(chan interface{})
		close(done)
		return done
	}
	proc.Stop()
	return waitProducer(proc)
}

func waitProducer(proc process.ProducerProcess) <-chan interface{} {
	done := make(chan interface{})
	go func() {
		defer close(done)
		proc.Wait()
	}()
	return done
}
