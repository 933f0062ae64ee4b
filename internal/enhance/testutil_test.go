package enhance

import (
	"math"
	"math/rand"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"
)

// generateSine 生成单声道正弦波
func generateSine(freq, amp, secs float64, sampleRate int) []float64 {
	n := int(secs * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// generateNoise 生成确定性的白噪声
func generateNoise(amp, secs float64, sampleRate int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	n := int(secs * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * rng.NormFloat64()
	}
	return out
}

func monoBuffer(samples []float64, sampleRate int) *types.AudioBuffer {
	return types.FromChannels([][]float64{samples}, sampleRate)
}

func stereoBuffer(left, right []float64, sampleRate int) *types.AudioBuffer {
	return types.FromChannels([][]float64{left, right}, sampleRate)
}

func rmsDB(samples []float64) float64 {
	return dsp.LinearToDB(dsp.RMS(samples))
}

func peakDB(samples []float64) float64 {
	return dsp.LinearToDB(dsp.Peak(samples))
}

func maxAbsDiff(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	d := 0.0
	for i := range a {
		if v := math.Abs(a[i] - b[i]); v > d {
			d = v
		}
	}
	return d
}
