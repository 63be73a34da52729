package sampler

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// simulatedSampleRate is the fixed rate the SineGenerator paces its
// synthetic reads against: 1 giga-sample per second, the same nominal
// acquisition rate as the hardware path.
const simulatedSampleRate = 1e9

// SineGenerator is a synthetic DataSource emitting a fixed-amplitude sine
// wave, for exercising the sampler and the self-test binary without
// hardware. Each byte produced costs one token from a rate.Limiter paced
// to simulatedSampleRate, so a long Read call takes proportionally long,
// the same way a real capture would.
type SineGenerator struct {
	phase   float64
	step    float64
	limiter *rate.Limiter
}

// NewSineGenerator constructs a generator producing a sine wave at the
// given frequency, in Hz.
func NewSineGenerator(frequency float64) *SineGenerator {
	return &SineGenerator{
		step:    2.0 * math.Pi * frequency / simulatedSampleRate,
		limiter: rate.NewLimiter(simulatedSampleRate, int(simulatedSampleRate)),
	}
}

// Read implements io.Reader, simulating a 1 GS/s capture rate via an
// x/time/rate limiter gating on the number of bytes requested.
func (g *SineGenerator) Read(data []byte) (int, error) {
	for i := range data {
		sample := int8(math.Sin(g.phase) * 100.0)
		data[i] = byte(sample)
		g.phase = math.Mod(g.phase+g.step, 2.0*math.Pi)
	}
	if err := g.limiter.WaitN(context.Background(), len(data)); err != nil {
		return 0, err
	}
	return len(data), nil
}
