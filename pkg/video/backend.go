package video

import (
	"context"

	"github.com/tauraamui/dragonrelay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var ErrEncode = xerror.New("unable to encode frame")

// ConnectOptions are capture properties applied to a device once it
// has been opened. Zero values leave the device default in place.
type ConnectOptions struct {
	FPS    int
	Width  int
	Height int
}

type Connection interface {
	UUID() string
	Read(videoframe.Frame) error
	IsOpen() bool
	Close() error
}

// Encoder compresses raw frames. Implementations hold no state
// between calls and may be shared.
type Encoder interface {
	Encode(videoframe.Frame) ([]byte, error)
	MIMEType() string
}

type Backend interface {
	Connect(context.Context, string, ConnectOptions) (Connection, error)
	NewFrame() videoframe.Frame
	NewEncoder(quality int) Encoder
}
