// Package enhance 实现降噪、压缩、立体声扩展和响度归一化等增强处理
package enhance

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	baseThresholdDB   = 3.0
	strengthSpanDB    = 12.0
	transitionDB      = 6.0
	maxAttenuationDB  = 30.0
	silentFrameEnergy = 1e-12
)

// NoiseReducer 基于短时傅里叶变换的频谱掩蔽降噪器
type NoiseReducer struct {
	FrameSize     int     // 分析帧长
	HopSize       int     // 帧移
	NoiseFraction float64 // 估计噪声底时使用的最安静帧比例
}

// NewNoiseReducer 创建默认参数的降噪器
func NewNoiseReducer() *NoiseReducer {
	return &NoiseReducer{
		FrameSize:     2048,
		HopSize:       512,
		NoiseFraction: 0.1,
	}
}

// Reduce 按强度 strength ∈ [0,1] 抑制平稳背景噪声，返回新缓冲区
//
// strength 为 0 或输入静音时原样返回副本。
func (r *NoiseReducer) Reduce(buf *types.AudioBuffer, strength float64) (*types.AudioBuffer, error) {
	if math.IsNaN(strength) || strength < 0 || strength > 1 {
		return nil, fmt.Errorf("%w: 降噪强度 %.2f 超出 [0,1]", types.ErrInvalidInput, strength)
	}
	if buf.IsEmpty() || strength == 0 || dsp.IsSilent(buf.Samples) {
		return buf.Clone(), nil
	}
	if r.FrameSize <= 0 || r.HopSize <= 0 || r.HopSize > r.FrameSize {
		return nil, fmt.Errorf("%w: 无效的帧参数 %d/%d", types.ErrInvalidInput, r.FrameSize, r.HopSize)
	}

	fft := fourier.NewFFT(r.FrameSize)
	win := window.Hann(r.FrameSize)

	out := buf.Clone()
	for ch := 0; ch < buf.Channels; ch++ {
		cleaned := r.reduceChannel(fft, win, buf.Channel(ch), strength)
		for i, s := range cleaned {
			out.Samples[i*buf.Channels+ch] = s
		}
	}

	if !dsp.Finite(out.Samples) {
		return nil, fmt.Errorf("%w: 降噪结果包含无效数值", types.ErrProcessingFailed)
	}
	return out, nil
}

// reduceChannel 对单声道做 STFT、掩蔽和加权重叠相加
func (r *NoiseReducer) reduceChannel(fft *fourier.FFT, win, x []float64, strength float64) []float64 {
	n, hop := r.FrameSize, r.HopSize
	pad := n
	padded := make([]float64, len(x)+2*pad)
	copy(padded[pad:], x)

	frames := (len(padded)-n)/hop + 1
	spectra := make([][]complex128, frames)
	mags := make([][]float64, frames)
	energies := make([]float64, frames)

	frame := make([]float64, n)
	for f := 0; f < frames; f++ {
		start := f * hop
		for i := range frame {
			frame[i] = padded[start+i] * win[i]
		}
		coeffs := fft.Coefficients(nil, frame)
		m := make([]float64, len(coeffs))
		e := 0.0
		for k, c := range coeffs {
			m[k] = cmplx.Abs(c)
			e += m[k] * m[k]
		}
		spectra[f], mags[f], energies[f] = coeffs, m, e
	}

	noise := r.noiseFloor(mags, energies, pad, len(x))
	if noise == nil {
		res := make([]float64, len(x))
		copy(res, x)
		return res
	}

	threshold := baseThresholdDB + strength*strengthSpanDB
	floor := dsp.DBToLinear(-strength * maxAttenuationDB)

	acc := make([]float64, len(padded))
	norm := make([]float64, len(padded))
	seq := make([]float64, n)
	scale := 1.0 / float64(n)
	for f, coeffs := range spectra {
		for k := range coeffs {
			coeffs[k] *= complex(softMask(mags[f][k], noise[k], threshold, floor), 0)
		}
		fft.Sequence(seq, coeffs)
		start := f * hop
		for i := 0; i < n; i++ {
			acc[start+i] += seq[i] * scale * win[i]
			norm[start+i] += win[i] * win[i]
		}
	}

	res := make([]float64, len(x))
	for i := range res {
		if w := norm[i+pad]; w > 1e-8 {
			res[i] = acc[i+pad] / w
		}
	}
	return res
}

// noiseFloor 用最安静的一部分帧估计逐频点噪声幅度，没有可用帧时返回 nil
func (r *NoiseReducer) noiseFloor(mags [][]float64, energies []float64, pad, length int) []float64 {
	var candidates []int
	for f := range mags {
		start := f * r.HopSize
		if start >= pad && start+r.FrameSize <= pad+length && energies[f] > silentFrameEnergy {
			candidates = append(candidates, f)
		}
	}
	// 信号短于一帧时退回到所有非静音帧
	if len(candidates) == 0 {
		for f := range mags {
			if energies[f] > silentFrameEnergy {
				candidates = append(candidates, f)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	quiet := quietestFrames(candidates, energies, r.NoiseFraction)
	noise := make([]float64, len(mags[0]))
	for _, f := range quiet {
		for k, m := range mags[f] {
			noise[k] += m
		}
	}
	for k := range noise {
		noise[k] /= float64(len(quiet))
	}
	return noise
}

// softMask 按信噪比计算 [floor,1] 之间的掩蔽增益
func softMask(mag, noise, thresholdDB, floor float64) float64 {
	if noise <= 0 {
		return 1
	}
	if mag <= 0 {
		return floor
	}
	snr := 20 * math.Log10(mag/noise)
	if snr >= thresholdDB {
		return 1
	}
	lower := thresholdDB - transitionDB
	if snr <= lower {
		return floor
	}
	t := (snr - lower) / transitionDB
	return floor + (1-floor)*t
}

// quietestFrames 按能量升序返回候选帧
func quietestFrames(candidates []int, energies []float64, fraction float64) []int {
	sort.Slice(candidates, func(i, j int) bool {
		return energies[candidates[i]] < energies[candidates[j]]
	})
	count := int(math.Ceil(float64(len(candidates)) * fraction))
	if count < 1 {
		count = 1
	}
	if count > len(candidates) {
		count = len(candidates)
	}
	return candidates[:count]
}
