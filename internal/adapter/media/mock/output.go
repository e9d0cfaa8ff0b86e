package mock

import (
	"sync"
	"time"

	"github.com/cadenzaplayer/cadenza/internal/domain"
	"github.com/cadenzaplayer/cadenza/internal/ports"
)

// Output is a mock implementation of the Output interface.
// It discards samples but can pace Write calls in real time so playback tests
// observe a running transport instead of an instantly finished one.
type Output struct {
	mu sync.Mutex

	started    bool
	closed     bool
	sampleRate int
	channels   int

	// realtime paces Write to the sample rate when true
	realtime bool

	// written counts samples accepted since the last Start
	written int

	// writeErr, when set, makes Write fail
	writeErr error

	// startErr, when set, makes Start fail
	startErr error
}

// NewOutput creates a new mock output. Pacing is off by default; tests that
// assert on a still-playing transport should enable it.
func NewOutput() *Output {
	return &Output{}
}

// SetRealtime enables or disables real-time pacing of Write calls.
func (o *Output) SetRealtime(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.realtime = enabled
}

// SetWriteError makes subsequent Write calls fail with the given error.
// Pass nil to restore normal operation.
func (o *Output) SetWriteError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writeErr = err
}

// SetStartError makes subsequent Start calls fail with the given error.
// Pass nil to restore normal operation.
func (o *Output) SetStartError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startErr = err
}

// Started reports whether the output has an active stream.
func (o *Output) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// Written returns the number of samples accepted since the last Start.
func (o *Output) Written() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

// Start opens the device for the given stream format.
func (o *Output) Start(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return domain.NewPlaybackError("start", "", "output is closed", nil)
	}
	if o.startErr != nil {
		return domain.NewPlaybackError("start", "", "start failed", o.startErr)
	}

	o.started = true
	o.sampleRate = sampleRate
	o.channels = channels
	o.written = 0
	return nil
}

// Write accepts a block of interleaved samples. With pacing enabled it sleeps
// for the block's wall-clock length, mimicking a device buffer.
func (o *Output) Write(samples []float32) error {
	o.mu.Lock()
	if o.closed || !o.started {
		o.mu.Unlock()
		return domain.NewPlaybackError("write", "", "output is not started", nil)
	}
	if o.writeErr != nil {
		err := o.writeErr
		o.mu.Unlock()
		return domain.NewPlaybackError("write", "", "write failed", err)
	}

	o.written += len(samples)
	realtime := o.realtime
	rate := o.sampleRate * o.channels
	o.mu.Unlock()

	if realtime && rate > 0 {
		time.Sleep(time.Duration(float64(len(samples)) / float64(rate) * float64(time.Second)))
	}
	return nil
}

// Stop drains and closes the current stream.
func (o *Output) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = false
	return nil
}

// Close releases the device.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = false
	o.closed = true
	return nil
}

// Verify that Output implements the Output interface
var _ ports.Output = (*Output)(nil)
