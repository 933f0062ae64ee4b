package dsp

import "math"

const (
	oversampleFactor = 4
	interpTaps       = 12 // 每侧抽头数
)

// interpKernel 各插值相位的加窗sinc系数
var interpKernel = buildInterpKernel()

func buildInterpKernel() [][]float64 {
	kernel := make([][]float64, oversampleFactor)
	for p := 1; p < oversampleFactor; p++ {
		frac := float64(p) / oversampleFactor
		coeffs := make([]float64, 2*interpTaps)
		for j := range coeffs {
			k := j - interpTaps + 1
			x := frac - float64(k)
			w := 0.5 * (1 + math.Cos(math.Pi*x/float64(interpTaps)))
			coeffs[j] = sinc(x) * w
		}
		kernel[p] = coeffs
	}
	return kernel
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// TruePeak 4倍过采样检测采样间峰值，返回线性值
func TruePeak(samples []float64, channels int) float64 {
	if channels <= 0 {
		return Peak(samples)
	}
	peak := 0.0
	for _, v := range TruePeakFrames(samples, channels) {
		peak = math.Max(peak, v)
	}
	return peak
}

// TruePeakFrames 返回每帧的过采样峰值
//
// 第 i 个值覆盖第 i 帧的采样以及它与下一帧之间的插值点，取各声道最大值。
func TruePeakFrames(samples []float64, channels int) []float64 {
	if channels <= 0 {
		return nil
	}
	frames := len(samples) / channels
	peaks := make([]float64, frames)

	at := func(i, ch int) float64 {
		if i < 0 || i >= frames {
			return 0
		}
		return samples[i*channels+ch]
	}

	for i := 0; i < frames; i++ {
		peak := 0.0
		for ch := 0; ch < channels; ch++ {
			peak = math.Max(peak, math.Abs(samples[i*channels+ch]))
			for p := 1; p < oversampleFactor; p++ {
				v := 0.0
				for j, c := range interpKernel[p] {
					v += c * at(i+j-interpTaps+1, ch)
				}
				peak = math.Max(peak, math.Abs(v))
			}
		}
		peaks[i] = peak
	}
	return peaks
}

// TruePeakSpan 单个插值点依赖的前后帧数
const TruePeakSpan = interpTaps
