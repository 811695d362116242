package videobackend

import (
	"github.com/tauraamui/dragonrelay/pkg/video"
)

func Default() video.Backend {
	return OpenCV()
}

func OpenCV() video.Backend {
	return &openCVBackend{}
}

func Mock() video.Backend {
	return &mockVideoBackend{}
}

func Resolve(t string) video.Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}
