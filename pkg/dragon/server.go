package dragon

import (
	"context"
	"sync"

	"github.com/tauraamui/dragonrelay/pkg/broadcast"
	"github.com/tauraamui/dragonrelay/pkg/camera"
	"github.com/tauraamui/dragonrelay/pkg/configdef"
	"github.com/tauraamui/dragonrelay/pkg/dragon/process"
	"github.com/tauraamui/dragonrelay/pkg/log"
	"github.com/tauraamui/dragonrelay/pkg/video"
	"github.com/tauraamui/xerror"
)

var (
	ErrFeedUnavailable = xerror.New("video feed not available")
	ErrStartInProgress = xerror.New("camera connection already in progress")
)

type Status struct {
	State        string `json:"state"`
	Camera       string `json:"camera"`
	CameraUUID   string `json:"camera_uuid"`
	CameraOpen   bool   `json:"camera_open"`
	Listeners    int    `json:"listeners"`
	LastFrameSeq uint64 `json:"last_frame_seq"`
}

// Server owns the single camera and the producer feeding every viewer.
type Server struct {
	mu           sync.Mutex
	config       configdef.Values
	videoBackend video.Backend
	cam          camera.Connection
	broadcaster  *broadcast.Broadcaster
	producer     process.ProducerProcess
	starting     chan interface{}
	cancelStart  context.CancelFunc
}

func NewServer(cr configdef.Resolver, backend video.Backend) (*Server, error) {
	c, err := cr.Resolve()
	if err != nil {
		return nil, err
	}
	return &Server{config: c, videoBackend: backend}, nil
}

func (s *Server) Config() configdef.Values {
	return s.config
}

// Start opens the camera and begins producing frames. If the camera
// cannot be opened the returned error wraps camera.ErrDeviceUnavailable
// and nothing is started. Starting a running server does nothing, and
// a previous producer which is still stopping is waited on before the
// camera is opened again. Shutdown cancels a start in progress.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.starting != nil {
		s.mu.Unlock()
		return ErrStartInProgress
	}
	previous := s.producer
	if previous != nil && previous.State() == process.Running {
		s.mu.Unlock()
		return nil
	}
	startCtx, cancel := context.WithCancel(ctx)
	starting := make(chan interface{})
	s.starting, s.cancelStart = starting, cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.starting, s.cancelStart = nil, nil
		s.mu.Unlock()
		cancel()
		close(starting)
	}()

	if previous != nil {
		select {
		case <-waitProducer(previous):
		case <-startCtx.Done():
			return xerror.Errorf("camera [%s] is still being released: %w", s.config.Camera.Title, startCtx.Err())
		}
	}

	conn, err := s.connect(startCtx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := startCtx.Err(); err != nil {
		if cerr := conn.Close(); cerr != nil {
			log.Error("Unable to release camera [%s]: %v", conn.Title(), cerr)
		}
		return xerror.Errorf("connection to camera [%s] abandoned: %w", conn.Title(), err)
	}
	s.setupProducer(conn)
	s.runProducer()
	return nil
}

func (s *Server) connect(ctx context.Context) (camera.Connection, error) {
	cam := s.config.Camera
	log.Info("Connecting to camera: [%s]...", cam.Title)
	conn, err := camera.ConnectWithCancel(ctx, cam.Title, cam.Address, camera.Settings{
		FPS:    cam.FPS,
		Width:  cam.Width,
		Height: cam.Height,
	}, s.videoBackend)
	if err != nil {
		return nil, err
	}
	log.Info("Connected successfully to camera: [%s]", cam.Title)
	return conn, nil
}

// Shutdown stops frame production and returns a channel which closes
// once the camera has been released. It never waits on viewers and may
// be called any number of times. A start still connecting is cancelled.
func (s *Server) Shutdown() <-chan interface{} {
	s.mu.Lock()
	starting, cancelStart, producer := s.starting, s.cancelStart, s.producer
	s.mu.Unlock()

	if starting == nil {
		return s.shutdownProducer(producer)
	}

	cancelStart()
	done := make(chan interface{})
	go func() {
		defer close(done)
		<-starting
		s.mu.Lock()
		producer := s.producer
		s.mu.Unlock()
		<-s.shutdownProducer(producer)
	}()
	return done
}

// Listen attaches a new viewer to the running feed.
func (s *Server) Listen() (*broadcast.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.producer == nil || s.producer.State() != process.Running {
		return nil, ErrFeedUnavailable
	}

	l, err := s.broadcaster.Listen()
	if err != nil {
		return nil, xerror.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	return l, nil
}

func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		State:  process.Idle.String(),
		Camera: s.config.Camera.Title,
	}
	if s.producer == nil {
		return status
	}

	status.State = s.producer.State().String()
	status.CameraUUID = s.cam.UUID()
	status.CameraOpen = s.cam.IsOpen()
	status.Listeners = s.broadcaster.Listeners()
	if latest, ok := s.broadcaster.Latest(); ok {
		status.LastFrameSeq = latest.Seq
	}
	return status
}
