package mastering

import (
	"math"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"
)

// Limiter 前视峰值限制器
type Limiter struct {
	CeilingDB   float64
	LookaheadMs float64
	ReleaseMs   float64
}

// Limit 返回真峰值不超过上限的新缓冲区
//
// 每帧所需增益按 4 倍过采样峰值计算，并覆盖插值所依赖的前后帧。
// 增益在峰值到来前的前视窗口内就降到位，之后按释放时间恢复。
// 平滑后的残余过冲由最终的硬限幅消除。
func (l *Limiter) Limit(buf *types.AudioBuffer) *types.AudioBuffer {
	out := buf.Clone()
	ceiling := dsp.DBToLinear(l.CeilingDB)
	ch := buf.Channels
	frames := buf.Frames()
	if frames == 0 {
		return out
	}

	// 每帧需要的增益
	need := make([]float64, frames)
	for i, peak := range dsp.TruePeakFrames(buf.Samples, ch) {
		need[i] = 1
		if peak > ceiling {
			need[i] = ceiling / peak
		}
	}

	// target[i] 为 need[i-span, i+lookahead+span) 的最小值
	span := dsp.TruePeakSpan
	lookahead := max(dsp.MsToFrames(l.LookaheadMs, buf.SampleRate), 1)
	window := slidingMin(need, lookahead+2*span)
	target := make([]float64, frames)
	for i := range target {
		target[i] = window[max(i-span, 0)]
	}

	release := 0.0
	if l.ReleaseMs > 0 {
		release = math.Exp(-1 / (l.ReleaseMs / 1000 * float64(buf.SampleRate)))
	}

	gain := 1.0
	for i := 0; i < frames; i++ {
		if target[i] < gain {
			gain = target[i]
		} else {
			gain = target[i] + (gain-target[i])*release
		}
		for c := 0; c < ch; c++ {
			idx := i*ch + c
			out.Samples[idx] = dsp.Clamp(out.Samples[idx]*gain, -ceiling, ceiling)
		}
	}
	return out
}

// slidingMin 返回 x[i..i+window) 的最小值
func slidingMin(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	deque := make([]int, 0, window)
	// 从尾部向前扫描，队首始终是窗口内的最小值下标
	for i := len(x) - 1; i >= 0; i-- {
		for len(deque) > 0 && x[deque[len(deque)-1]] >= x[i] {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		if deque[0] >= i+window {
			deque = deque[1:]
		}
		out[i] = x[deque[0]]
	}
	return out
}
