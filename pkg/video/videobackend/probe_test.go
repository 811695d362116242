package videobackend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tauraamui/dragonrelay/pkg/video/videobackend"
)

func TestNetworkHostAppliesDefaultPorts(t *testing.T) {
	tests := []struct {
		addr     string
		host     string
		isRemote bool
	}{
		{addr: "rtsp://camera.local/stream1", host: "camera.local:554", isRemote: true},
		{addr: "rtsp://camera.local:8554/stream1", host: "camera.local:8554", isRemote: true},
		{addr: "http://10.0.0.4/video.mjpg", host: "10.0.0.4:80", isRemote: true},
		{addr: "https://cams.example.com/live", host: "cams.example.com:443", isRemote: true},
		{addr: "0", isRemote: false},
		{addr: "/dev/video0", isRemote: false},
		{addr: "file:///tmp/small.mp4", isRemote: false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, ok, err := videobackend.NetworkHost(tt.addr)
			require.NoError(t, err)
			assert.Equal(t, tt.isRemote, ok)
			assert.Equal(t, tt.host, host)
		})
	}
}

func TestNetworkHostRejectsEmptyAddress(t *testing.T) {
	_, ok, err := videobackend.NetworkHost("")
	assert.False(t, ok)
	assert.EqualError(t, err, "connection address is undefined")
}

func TestResolveDevice(t *testing.T) {
	assert.Equal(t, 0, videobackend.ResolveDevice("0"))
	assert.Equal(t, 2, videobackend.ResolveDevice(" 2 "))
	assert.Equal(t, "/dev/video0", videobackend.ResolveDevice("/dev/video0"))
}
