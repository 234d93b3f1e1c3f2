// ABOUTME: Streaming linear resampler for 16-bit audio
// ABOUTME: Carries the last input frame across calls so chunk edges stay continuous
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It is stateful and not safe for concurrent use.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// position of the next output frame in input frames, relative to the
	// first frame of the next input; -1 addresses lastSample
	position   float64
	lastSample []int16 // one sample per channel
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastSample: make([]int16, channels),
	}
}

// Resample converts interleaved input at inputRate to interleaved output at outputRate
func (r *Resampler) Resample(input []int16) []int16 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return nil
	}

	if r.inputRate == r.outputRate {
		out := make([]int16, inputFrames*r.channels)
		copy(out, input)
		return out
	}

	out := make([]int16, 0, r.OutputSamplesNeeded(len(input))+r.channels)

	for {
		idx := int(r.position)
		if r.position < 0 {
			idx = -1
		}

		// Both neighbours must be available
		if idx+1 >= inputFrames {
			break
		}

		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			var sample1 int16
			if idx < 0 {
				sample1 = r.lastSample[ch]
			} else {
				sample1 = input[idx*r.channels+ch]
			}
			sample2 := input[(idx+1)*r.channels+ch]

			interpolated := float64(sample1)*(1.0-frac) + float64(sample2)*frac
			out = append(out, int16(interpolated))
		}

		r.position += r.ratio
	}

	// Rebase onto the next input and remember the final frame
	r.position -= float64(inputFrames)
	copy(r.lastSample, input[(inputFrames-1)*r.channels:inputFrames*r.channels])

	return out
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
}

// Ratio returns input frames consumed per output frame
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// OutputSamplesNeeded estimates how many output samples input samples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded estimates how many input samples produce outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
