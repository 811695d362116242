package process

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tauraamui/dragonrelay/pkg/broadcast"
	"github.com/tauraamui/dragonrelay/pkg/camera"
	"github.com/tauraamui/dragonrelay/pkg/log"
	"github.com/tauraamui/dragonrelay/pkg/metrics"
	"github.com/tauraamui/dragonrelay/pkg/video"
)

type State int

const (
	Idle State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

type ProducerSettings struct {
	// FPS paces device reads, zero reads as fast as the device delivers.
	FPS int
}

// ProducerProcess reads frames from a single camera, encodes them and
// publishes the result. It runs regardless of how many viewers are
// listening.
type ProducerProcess interface {
	Process
	State() State
}

type producerProcess struct {
	mu          sync.Mutex
	state       State
	cam         camera.Connection
	enc         video.Encoder
	broadcaster *broadcast.Broadcaster
	fps         int
	proc        Process
	finishOnce  sync.Once
	done        chan interface{}
}

func NewProducerProcess(
	cam camera.Connection, enc video.Encoder, b *broadcast.Broadcaster, settings ProducerSettings,
) ProducerProcess {
	p := &producerProcess{
		cam:         cam,
		enc:         enc,
		broadcaster: b,
		fps:         settings.FPS,
		done:        make(chan interface{}),
	}
	p.proc = New(Settings{
		WaitForShutdownMsg: fmt.Sprintf("Stopping frame production from camera [%s]...", cam.Title()),
		Process:            p.produce,
		OnStop:             b.Close,
	})
	return p
}

func (p *producerProcess) Setup() Process {
	p.proc.Setup()
	return p
}

func (p *producerProcess) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Idle {
		return
	}
	p.state = Running
	p.proc.Start()
}

// Stop ends every listener straight away. The producer reports
// Stopping until any in flight read has returned and the camera has
// been released.
func (p *producerProcess) Stop() {
	p.mu.Lock()
	state := p.state
	switch state {
	case Idle:
		p.state = Stopped
	case Running:
		p.state = Stopping
	}
	p.mu.Unlock()

	p.proc.Stop()
	if state == Idle {
		p.finish()
	}
}

func (p *producerProcess) Wait() {
	p.proc.Wait()
}

func (p *producerProcess) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *producerProcess) produce(ctx context.Context) []chan interface{} {
	go p.run(ctx)
	return []chan interface{}{p.done}
}

func (p *producerProcess) run(ctx context.Context) {
	defer p.finish()

	var tick <-chan time.Time
	if p.fps > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(p.fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		}

		if err := p.produceFrame(); err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, camera.ErrCaptureEnded) {
				log.Warn("Camera [%s] stopped producing frames: %v", p.cam.Title(), err)
				return
			}
			log.Error("Unable to read from camera [%s]: %v", p.cam.Title(), err)
			return
		}
	}
}

func (p *producerProcess) produceFrame() error {
	log.Debug("Reading frame from camera [%s]", p.cam.Title())
	frame, err := p.cam.Read()
	if err != nil {
		return err
	}
	metrics.FramesCaptured.Inc()
	dimensions := frame.Dimensions()

	data, err := p.enc.Encode(frame)
	frame.Close()
	if err != nil {
		metrics.EncodeErrors.Inc()
		log.Error("Skipping frame from camera [%s]: %v", p.cam.Title(), err)
		return nil
	}

	if encoded, ok := p.broadcaster.Publish(data, p.enc.MIMEType()); ok {
		metrics.FramesPublished.Inc()
		log.Debug(
			"Published frame %d (%dx%d) from camera [%s]",
			encoded.Seq, dimensions.W, dimensions.H, p.cam.Title(),
		)
	}
	return nil
}

func (p *producerProcess) finish() {
	p.finishOnce.Do(func() {
		p.mu.Lock()
		p.state = Stopped
		p.mu.Unlock()

		p.broadcaster.Close()
		if err := p.cam.Close(); err != nil {
			log.Error("Unable to release camera [%s]: %v", p.cam.Title(), err)
		}
		log.Info("Released camera [%s]", p.cam.Title())
		close(p.done)
	})
}
