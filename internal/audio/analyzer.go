package audio

import (
	"math"
	"math/bits"
	"sync"
)

// fftSize is the number of samples transformed per snapshot. Power of two.
const fftSize = 2048

// Analyzer computes a coarse frequency spectrum over the most recent audio.
// The graph feeds it post-equalizer samples; collaborators poll Snapshot for
// visualization data.
//
// Thread-safety: safe for concurrent use.
type Analyzer struct {
	mu sync.Mutex

	// ring holds the last fftSize samples (mono, downmixed by the caller)
	ring [fftSize]float64
	pos  int

	bins       int
	sampleRate int
}

// NewAnalyzer creates an analyzer producing the given number of spectrum bins.
// Bin counts outside [1, fftSize/2] are clamped.
func NewAnalyzer(bins int) *Analyzer {
	if bins < 1 {
		bins = 1
	}
	if bins > fftSize/2 {
		bins = fftSize / 2
	}
	return &Analyzer{
		bins:       bins,
		sampleRate: 44100,
	}
}

// Configure sets the sample rate and clears accumulated audio.
func (a *Analyzer) Configure(sampleRate int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sampleRate = sampleRate
	a.ring = [fftSize]float64{}
	a.pos = 0
}

// Bins returns the number of spectrum bins per snapshot.
func (a *Analyzer) Bins() int {
	return a.bins
}

// Feed appends a block of samples to the analysis window.
func (a *Analyzer) Feed(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range samples {
		a.ring[a.pos] = float64(s)
		a.pos = (a.pos + 1) % fftSize
	}
}

// Reset clears the analysis window, dropping residual spectrum after a stop.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ring = [fftSize]float64{}
	a.pos = 0
}

// Snapshot computes the current spectrum, quantized per bin to 0-255.
// 0 is silence (or -60 dB and below), 255 is full scale.
func (a *Analyzer) Snapshot() []byte {
	a.mu.Lock()

	// Unroll the ring into time order and apply a Hann window
	buf := make([]complex128, fftSize)
	for i := 0; i < fftSize; i++ {
		s := a.ring[(a.pos+i)%fftSize]
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
		buf[i] = complex(s*w, 0)
	}
	bins := a.bins
	a.mu.Unlock()

	fft(buf)

	// Group the usable half of the spectrum into the requested bins,
	// taking the peak magnitude per group
	half := fftSize / 2
	out := make([]byte, bins)
	perBin := half / bins
	if perBin < 1 {
		perBin = 1
	}
	for b := 0; b < bins; b++ {
		start := b * perBin
		end := start + perBin
		if end > half {
			end = half
		}
		peak := 0.0
		for i := start; i < end; i++ {
			mag := cmplxAbs(buf[i]) / float64(half)
			if mag > peak {
				peak = mag
			}
		}
		out[b] = quantize(peak)
	}
	return out
}

// quantize maps a normalized magnitude onto 0-255 through a -60 dB floor.
func quantize(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	if db <= -60 {
		return 0
	}
	if db >= 0 {
		return 255
	}
	return byte((db + 60) / 60 * 255)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// fft performs an in-place iterative radix-2 transform.
// len(buf) must be a power of two.
func fft(buf []complex128) {
	n := len(buf)
	shift := bits.UintSize - uint(bits.Len(uint(n-1)))

	// Bit-reversal permutation
	for i := 0; i < n; i++ {
		j := int(bits.Reverse(uint(i)) >> shift)
		if j > i {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}

	for size := 2; size <= n; size *= 2 {
		angle := -2 * math.Pi / float64(size)
		wStep := complex(math.Cos(angle), math.Sin(angle))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < size/2; k++ {
				even := buf[start+k]
				odd := buf[start+k+size/2] * w
				buf[start+k] = even + odd
				buf[start+k+size/2] = even - odd
				w *= wStep
			}
		}
	}
}
