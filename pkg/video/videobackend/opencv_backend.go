package videobackend

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/dragonrelay/pkg/video"
	"github.com/tauraamui/dragonrelay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

const jpegMIMEType = "image/jpeg"

type openCVFrame struct {
	isClosed bool
	mat      gocv.Mat
}

func (frame *openCVFrame) DataRef() interface{} {
	return &frame.mat
}

func (frame *openCVFrame) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: frame.mat.Cols(), H: frame.mat.Rows()}
}

func (frame *openCVFrame) Close() {
	if !frame.isClosed {
		frame.mat.Close()
		frame.isClosed = true
	}
}

type openCVBackend struct{}

func (b *openCVBackend) Connect(cancel context.Context, addr string, opts video.ConnectOptions) (video.Connection, error) {
	conn := openCVConnection{}
	err := conn.connect(cancel, addr, opts)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (b *openCVBackend) NewFrame() videoframe.Frame {
	return &openCVFrame{mat: gocv.NewMat()}
}

func (b *openCVBackend) NewEncoder(quality int) video.Encoder {
	return openCVJPEGEncoder{quality: quality}
}

type openCVJPEGEncoder struct {
	quality int
}

func (e openCVJPEGEncoder) MIMEType() string { return jpegMIMEType }

func (e openCVJPEGEncoder) Encode(frame videoframe.Frame) ([]byte, error) {
	mat, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return nil, xerror.Errorf("%w: must pass OpenCV frame to OpenCV encoder", video.ErrEncode)
	}
	if mat.Empty() {
		return nil, xerror.Errorf("%w: frame is empty", video.ErrEncode)
	}

	buf, err := encodeJPEG(*mat, e.quality)
	if err != nil {
		return nil, xerror.Errorf("%w: %v", video.ErrEncode, err)
	}
	return buf, nil
}

var encodeJPEG = func(mat gocv.Mat, quality int) ([]byte, error) {
	nbuf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, err
	}
	defer nbuf.Close()

	// native memory is freed on close, published frames need their own copy
	b := nbuf.GetBytes()
	data := make([]byte, len(b))
	copy(data, b)
	return data, nil
}

type openCVConnection struct {
	uuid   string
	mu     sync.Mutex
	isOpen bool
	vc     *gocv.VideoCapture
}

func (c *openCVConnection) connect(cancel context.Context, addr string, opts video.ConnectOptions) error {
	if err := probe(cancel, addr); err != nil {
		return err
	}

	connAndError := make(chan openVideoStreamResult, 1)
	go openVideoStream(addr, connAndError)
	select {
	case r := <-connAndError:
		if r.err != nil {
			return r.err
		}
		if !r.vc.IsOpened() {
			r.vc.Close()
			return xerror.Errorf("video capture [%s] did not open", addr)
		}
		applyConnectOptions(r.vc, opts)
		c.vc = r.vc
		c.isOpen = true
		return nil
	case <-cancel.Done():
		// the open may still complete, release it in the background
		go func() {
			if r := <-connAndError; r.vc != nil {
				r.vc.Close()
			}
		}()
		return xerror.New("connection cancelled")
	}
}

func applyConnectOptions(vc *gocv.VideoCapture, opts video.ConnectOptions) {
	if opts.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	if opts.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(opts.FPS))
	}
}

type openVideoStreamResult struct {
	vc  *gocv.VideoCapture
	err error
}

func openVideoStream(addr string, d chan openVideoStreamResult) {
	vc, err := openVideoCapture(resolveDevice(addr))
	result := openVideoStreamResult{vc: vc, err: err}
	d <- result
}

// resolveDevice turns a bare integer address into a device index,
// anything else is passed through as a file path or stream URL.
func resolveDevice(addr string) interface{} {
	if id, err := strconv.Atoi(strings.TrimSpace(addr)); err == nil {
		return id
	}
	return addr
}

var openVideoCapture = func(device interface{}) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(device)
}

var readFromVideoConnection = func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat)
	}
	return false
}

func (c *openCVConnection) UUID() string {
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

func (c *openCVConnection) Read(frame videoframe.Frame) error {
	mat, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return xerror.New("must pass OpenCV frame to OpenCV connection read")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return xerror.New("video connection is closed")
	}
	ok = readFromVideoConnection(c.vc, mat)
	if !ok {
		return xerror.New("unable to read from video connection")
	}
	return nil
}

func (c *openCVConnection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOpen {
		return c.vc.IsOpened()
	}
	return false
}

func (c *openCVConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil
	}
	c.isOpen = false
	return c.vc.Close()
}
