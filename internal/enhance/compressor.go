package enhance

import (
	"fmt"
	"math"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"
)

// defaultEnvelopeMs 包络检测的滑动RMS窗口
const defaultEnvelopeMs = 5.0

// CompressorParams 压缩器参数
type CompressorParams struct {
	ThresholdDB float64
	Ratio       float64
	AttackMs    float64
	ReleaseMs   float64
	WindowMs    float64 // 包络窗口，0 使用默认值
}

// Compress 对缓冲区做动态压缩，返回新缓冲区
//
// 各声道共用同一个包络，避免立体声像偏移。ratio 为 1 或阈值高于峰值时输出与输入相同。
func Compress(buf *types.AudioBuffer, p CompressorParams) (*types.AudioBuffer, error) {
	if math.IsNaN(p.Ratio) || p.Ratio < 1 {
		return nil, fmt.Errorf("%w: 压缩比 %.2f 必须不小于 1", types.ErrInvalidInput, p.Ratio)
	}
	if p.AttackMs <= 0 || p.ReleaseMs <= 0 {
		return nil, fmt.Errorf("%w: 启动/释放时间必须为正", types.ErrInvalidInput)
	}
	if buf.IsEmpty() || p.Ratio == 1 {
		return buf.Clone(), nil
	}

	reduction := gainReduction(buf, p)
	out := buf.Clone()
	ch := buf.Channels
	for i, r := range reduction {
		if r == 0 {
			continue
		}
		g := dsp.DBToLinear(-r)
		for c := 0; c < ch; c++ {
			out.Samples[i*ch+c] *= g
		}
	}

	if !dsp.Finite(out.Samples) {
		return nil, fmt.Errorf("%w: 压缩结果包含无效数值", types.ErrProcessingFailed)
	}
	return out, nil
}

// gainReduction 计算逐帧增益衰减量 (dB，非负)
//
// 衰减增大时使用启动时间常数，恢复时使用释放时间常数。
func gainReduction(buf *types.AudioBuffer, p CompressorParams) []float64 {
	sr := float64(buf.SampleRate)
	ch := buf.Channels
	frames := buf.Frames()

	windowMs := p.WindowMs
	if windowMs <= 0 {
		windowMs = defaultEnvelopeMs
	}
	win := dsp.MsToFrames(windowMs, buf.SampleRate)
	if win < 1 {
		win = 1
	}

	attack := math.Exp(-1 / (p.AttackMs / 1000 * sr))
	release := math.Exp(-1 / (p.ReleaseMs / 1000 * sr))
	slope := 1 - 1/p.Ratio

	power := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < ch; c++ {
			s := buf.Samples[i*ch+c]
			sum += s * s
		}
		power[i] = sum / float64(ch)
	}

	reduction := make([]float64, frames)
	running := 0.0
	current := 0.0
	for i := 0; i < frames; i++ {
		running += power[i]
		if i >= win {
			running -= power[i-win]
		}
		if running < 0 {
			running = 0
		}
		n := win
		if i+1 < win {
			n = i + 1
		}
		env := dsp.PowerToDB(running / float64(n))

		target := 0.0
		if env > p.ThresholdDB {
			target = (env - p.ThresholdDB) * slope
		}

		if target > current {
			current = attack*current + (1-attack)*target
		} else {
			current = release*current + (1-release)*target
		}
		reduction[i] = current
	}
	return reduction
}
