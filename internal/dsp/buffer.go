package dsp

import (
	"math"

	"audio-mastering-engine/internal/types"
)

// FadeIn 对交错数据开头 frames 帧做余弦淡入（原地）
func FadeIn(samples []float64, channels, frames int) {
	total := len(samples) / channels
	if frames > total {
		frames = total
	}
	for i := 0; i < frames; i++ {
		g := 0.5 - 0.5*math.Cos(math.Pi*float64(i)/float64(frames))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] *= g
		}
	}
}

// FadeOut 对交错数据末尾 frames 帧做余弦淡出（原地），最后一帧为零
func FadeOut(samples []float64, channels, frames int) {
	total := len(samples) / channels
	if frames > total {
		frames = total
	}
	start := total - frames
	for i := 0; i < frames; i++ {
		g := 0.5 + 0.5*math.Cos(math.Pi*float64(i+1)/float64(frames))
		for ch := 0; ch < channels; ch++ {
			samples[(start+i)*channels+ch] *= g
		}
	}
}

// EqualPower 等功率交叉淡化在位置 t∈[0,1] 的淡出/淡入增益
func EqualPower(t float64) (out, in float64) {
	return math.Cos(t * math.Pi / 2), math.Sin(t * math.Pi / 2)
}

// MsToFrames 毫秒转帧数
func MsToFrames(ms float64, sampleRate int) int {
	if ms <= 0 {
		return 0
	}
	return int(math.Round(ms / 1000 * float64(sampleRate)))
}

// ConvertChannels 单声道复制为立体声，或立体声平均为单声道
func ConvertChannels(buf *types.AudioBuffer, channels int) *types.AudioBuffer {
	if buf.Channels == channels {
		return buf.Clone()
	}
	frames := buf.Frames()
	if buf.Channels == 1 && channels == 2 {
		out := make([]float64, frames*2)
		for i, s := range buf.Samples {
			out[2*i] = s
			out[2*i+1] = s
		}
		return buf.WithSamples(out, 2)
	}
	return buf.WithSamples(buf.Mono(), 1)
}

// Resample 线性插值重采样
func Resample(buf *types.AudioBuffer, sampleRate int) *types.AudioBuffer {
	if buf.SampleRate == sampleRate || buf.IsEmpty() {
		out := buf.Clone()
		out.SampleRate = sampleRate
		return out
	}
	inFrames := buf.Frames()
	ratio := float64(buf.SampleRate) / float64(sampleRate)
	outFrames := int(math.Round(float64(inFrames) / ratio))
	ch := buf.Channels
	out := make([]float64, outFrames*ch)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		i0 := int(pos)
		frac := pos - float64(i0)
		i1 := i0 + 1
		if i1 >= inFrames {
			i1 = inFrames - 1
		}
		if i0 >= inFrames {
			i0 = inFrames - 1
		}
		for c := 0; c < ch; c++ {
			a := buf.Samples[i0*ch+c]
			b := buf.Samples[i1*ch+c]
			out[i*ch+c] = a + (b-a)*frac
		}
	}
	res := buf.WithSamples(out, ch)
	res.SampleRate = sampleRate
	return res
}
