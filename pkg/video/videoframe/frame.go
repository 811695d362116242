package videoframe

import "time"

type Dimensions struct {
	W, H int
}

// Frame is a raw pixel buffer read from a capture device. The
// reader owns it and must Close it once it has been encoded.
type Frame interface {
	DataRef() interface{}
	Dimensions() Dimensions
	Close()
}

// Encoded is a compressed frame ready to be sent to viewers. It is
// shared read-only between every listener, Data must never be written
// to once the value has been published.
type Encoded struct {
	Seq       uint64
	MIMEType  string
	Data      []byte
	Timestamp time.Time
}

func (e Encoded) Len() int { return len(e.Data) }

func (e Encoded) IsZero() bool { return e.Seq == 0 }
