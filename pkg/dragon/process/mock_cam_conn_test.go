package process_test

import (
	"sync"

	"github.com/tauraamui/dragonrelay/pkg/camera"
	"github.com/tauraamui/dragonrelay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type mockFrame struct {
	mu        sync.Mutex
	data      []byte
	isClosing bool
	onClose   func()
}

func (m *mockFrame) DataRef() interface{} {
	return m.data
}

func (m *mockFrame) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: 640, H: 480}
}

func (m *mockFrame) Close() {
	m.mu.Lock()
	m.isClosing = true
	m.mu.Unlock()
	if m.onClose != nil {
		m.onClose()
	}
}

func (m *mockFrame) closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosing
}

type mockCameraConn struct {
	mu             sync.Mutex
	title          string
	frameReadIndex int
	framesToRead   []*mockFrame
	readFunc       func() (videoframe.Frame, error)
	closeCount     int
	closeErr       error
}

func (m *mockCameraConn) UUID() string { return "mock-cam-uuid" }

func (m *mockCameraConn) Title() string { return m.title }

func (m *mockCameraConn) Read() (videoframe.Frame, error) {
	if m.readFunc != nil {
		return m.readFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frameReadIndex >= len(m.framesToRead) {
		return nil, xerror.Errorf("run out of frames to read: %w", camera.ErrCaptureEnded)
	}
	frame := m.framesToRead[m.frameReadIndex]
	m.frameReadIndex++
	return frame, nil
}

func (m *mockCameraConn) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount == 0
}

func (m *mockCameraConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCount++
	return m.closeErr
}

func (m *mockCameraConn) closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

type mockEncoder struct {
	encodeFunc func(videoframe.Frame) ([]byte, error)
}

func (m mockEncoder) Encode(frame videoframe.Frame) ([]byte, error) {
	if m.encodeFunc != nil {
		return m.encodeFunc(frame)
	}
	data, _ := frame.DataRef().([]byte)
	return append([]byte{}, data...), nil
}

func (m mockEncoder) MIMEType() string { return "image/jpeg" }

func framesOf(values ...string) []*mockFrame {
	frames := make([]*mockFrame, 0, len(values))
	for _, v := range values {
		frames = append(frames, &mockFrame{data: []byte(v)})
	}
	return frames
}
