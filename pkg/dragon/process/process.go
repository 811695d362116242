package process

import (
	"context"
	"sync"

	"github.com/tauraamui/dragonrelay/pkg/log"
)

type Process interface {
	Setup() Process
	Start()
	Stop()
	Wait()
}

type Settings struct {
	WaitForShutdownMsg string
	Process            func(context.Context) []chan interface{}
	// OnStop runs once, straight after the process context is cancelled.
	OnStop func()
}

// New returns a process which starts at most once. Stopping it before
// Start prevents it from ever running.
func New(settings Settings) Process {
	return &process{
		waitForShutdownMsg: settings.WaitForShutdownMsg,
		process:            settings.Process,
		onStop:             settings.OnStop,
	}
}

type process struct {
	mu                 sync.Mutex
	process            func(context.Context) []chan interface{}
	onStop             func()
	waitForShutdownMsg string
	canceller          context.CancelFunc
	signals            []chan interface{}
	started, stopped   bool
}

func (p *process) logShutdown() {
	if len(p.waitForShutdownMsg) > 0 {
		log.Info(p.waitForShutdownMsg)
	}
}

func (p *process) Setup() Process { return p }

func (p *process) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, canceller := context.WithCancel(context.Background())
	p.canceller = canceller
	p.signals = append(p.signals, p.process(ctx)...)
}

func (p *process) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	canceller := p.canceller
	p.mu.Unlock()

	p.logShutdown()
	if canceller != nil {
		canceller()
	}
	if p.onStop != nil {
		p.onStop()
	}
}

func (p *process) Wait() {
	p.mu.Lock()
	signals := append([]chan interface{}{}, p.signals...)
	p.mu.Unlock()

	for _, sig := range signals {
		<-sig
	}
}
