package configdef

import (
	"errors"
	"fmt"
	"net"

	"gopkg.in/dealancer/validate.v2"
)

const (
	DefaultListenAddress = ":5000"
	DefaultJPEGQuality   = 80
)

type Camera struct {
	Title       string `json:"title" validate:"empty=false"`
	Address     string `json:"address" validate:"empty=false"`
	FPS         int    `json:"fps" validate:"gte=0 & lte=60"`
	Width       int    `json:"width" validate:"gte=0"`
	Height      int    `json:"height" validate:"gte=0"`
	JPEGQuality int    `json:"jpeg_quality" validate:"gte=1 & lte=100"`
	Mock        bool   `json:"mock"`
}

type Values struct {
	Debug          bool   `json:"debug"`
	ListenAddress  string `json:"listen_address"`
	MetricsEnabled bool   `json:"metrics_enabled"`
	Camera         Camera `json:"camera"`
}

// ApplyDefaults fills in any optional values left unset.
func (v *Values) ApplyDefaults() {
	if len(v.ListenAddress) == 0 {
		v.ListenAddress = DefaultListenAddress
	}
	if v.Camera.JPEGQuality == 0 {
		v.Camera.JPEGQuality = DefaultJPEGQuality
	}
}

func (v Values) RunValidate() error {
	if err := validate.Validate(v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if !isValidListenAddress(v.ListenAddress) {
		return fmt.Errorf(validationErrorHeader, errors.New("listen address must be in host:port form"))
	}
	return nil
}

func isValidListenAddress(addr string) bool {
	if len(addr) == 0 {
		return false
	}
	_, port, err := net.SplitHostPort(addr)
	return err == nil && len(port) > 0
}
