package dragon_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/tauraamui/dragonrelay/pkg/configdef"
	"github.com/tauraamui/dragonrelay/pkg/video"
	"github.com/tauraamui/dragonrelay/pkg/video/videoframe"
)

type testConfigResolver struct {
	values configdef.Values
	err    error
}

func (tcr testConfigResolver) Resolve() (configdef.Values, error) {
	return tcr.values, tcr.err
}

func testConfig() configdef.Values {
	return configdef.Values{
		ListenAddress: ":5000",
		Camera: configdef.Camera{
			Title:       "TestCam",
			Address:     "0",
			JPEGQuality: 80,
		},
	}
}

type testFrame struct {
	data []byte
}

func (tf *testFrame) DataRef() interface{} { return tf.data }

func (tf *testFrame) Dimensions() videoframe.Dimensions { return videoframe.Dimensions{} }

func (tf *testFrame) Close() { tf.data = nil }

// testBackend feeds every connection from the same channel so a test
// decides exactly when each frame is captured.
type testBackend struct {
	mu           sync.Mutex
	connectErr   error
	connectBlock chan interface{}
	connecting   chan struct{}
	reading      chan struct{}
	frames       chan []byte
	conns        []*testConn
}

func newTestBackend() *testBackend {
	return &testBackend{frames: make(chan []byte)}
}

func (tb *testBackend) Connect(ctx context.Context, addr string, opts video.ConnectOptions) (video.Connection, error) {
	signal(tb.connecting)
	if tb.connectBlock != nil {
		select {
		case <-tb.connectBlock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.connectErr != nil {
		return nil, tb.connectErr
	}
	conn := &testConn{frames: tb.frames, reading: tb.reading}
	tb.conns = append(tb.conns, conn)
	return conn, nil
}

func (tb *testBackend) NewFrame() videoframe.Frame { return &testFrame{} }

func (tb *testBackend) NewEncoder(int) video.Encoder { return testEncoder{} }

func (tb *testBackend) connections() []*testConn {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return append([]*testConn{}, tb.conns...)
}

func signal(c chan struct{}) {
	if c == nil {
		return
	}
	select {
	case c <- struct{}{}:
	default:
	}
}

type testConn struct {
	mu         sync.Mutex
	frames     chan []byte
	reading    chan struct{}
	closeCount int
}

func (tc *testConn) UUID() string { return "test-conn" }

func (tc *testConn) Read(frame videoframe.Frame) error {
	signal(tc.reading)
	data, ok := <-tc.frames
	if !ok {
		return io.EOF
	}
	frame.(*testFrame).data = data
	return nil
}

func (tc *testConn) IsOpen() bool { return tc.closes() == 0 }

func (tc *testConn) Close() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.closeCount++
	return nil
}

func (tc *testConn) closes() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.closeCount
}

type testEncoder struct{}

func (te testEncoder) Encode(frame videoframe.Frame) ([]byte, error) {
	data := frame.DataRef().([]byte)
	if string(data) == "corrupt" {
		return nil, errors.New("corrupt frame")
	}
	return append([]byte{}, data...), nil
}

func (te testEncoder) MIMEType() string { return "image/jpeg" }
