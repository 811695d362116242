package camera

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/dragonrelay/pkg/video"
	"github.com/tauraamui/dragonrelay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var (
	ErrDeviceUnavailable = xerror.New("device unavailable")
	ErrCaptureEnded      = xerror.New("capture ended")
)

type Settings struct {
	FPS    int
	Width  int
	Height int
}

// Connection is the single owner of an open capture device. Read
// blocks until the device produces a frame, Close releases the
// device and may be called any number of times.
type Connection interface {
	UUID() string
	Read() (videoframe.Frame, error)
	Title() string
	IsOpen() bool
	Close() error
}

// connection serialises device access on readMu, mu only guards the
// closing flag so IsOpen never waits on a read in flight.
type connection struct {
	uuid      string
	backend   video.Backend
	title     string
	readMu    sync.Mutex
	mu        sync.Mutex
	isClosing bool
	closeOnce sync.Once
	closeErr  error
	vc        video.Connection
}

func (c *connection) UUID() string {
	return c.uuid
}

func (c *connection) closing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosing
}

func (c *connection) Read() (videoframe.Frame, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.closing() || c.vc == nil {
		return nil, xerror.Errorf("camera [%s] has been released: %w", c.title, ErrCaptureEnded)
	}

	frame := c.backend.NewFrame()
	if err := c.vc.Read(frame); err != nil {
		frame.Close()
		return nil, xerror.Errorf("unable to read frame from camera [%s]: %w: %v", c.title, ErrCaptureEnded, err)
	}
	return frame, nil
}

func (c *connection) Title() string {
	return c.title
}

func (c *connection) IsOpen() bool {
	if c.closing() || c.vc == nil {
		return false
	}
	return c.vc.IsOpen()
}

func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.isClosing = true
		c.mu.Unlock()

		c.readMu.Lock()
		defer c.readMu.Unlock()
		if c.vc != nil {
			c.closeErr = c.vc.Close()
		}
	})
	return c.closeErr
}

func connect(ctx context.Context, title, addr string, settings Settings, backend video.Backend) (Connection, error) {
	vc, err := backend.Connect(ctx, addr, video.ConnectOptions{
		FPS:    settings.FPS,
		Width:  settings.Width,
		Height: settings.Height,
	})
	if err != nil {
		return nil, xerror.Errorf("unable to connect to camera [%s]: %w: %v", title, ErrDeviceUnavailable, err)
	}
	if vc == nil {
		return nil, xerror.Errorf("unable to connect to camera [%s]: %w", title, ErrDeviceUnavailable)
	}
	return &connection{
		uuid:    uuid.NewString(),
		backend: backend,
		title:   title,
		vc:      vc,
	}, nil
}

func Connect(title, addr string, settings Settings, backend video.Backend) (Connection, error) {
	return connect(context.Background(), title, addr, settings, backend)
}

func ConnectWithCancel(cancel context.Context, title, addr string, settings Settings, backend video.Backend) (Connection, error) {
	return connect(cancel, title, addr, settings, backend)
}
