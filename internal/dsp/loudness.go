package dsp

import (
	"math"

	"audio-mastering-engine/internal/types"
)

// K加权滤波参数（与采样率无关的模拟原型）
const (
	kShelfFreq = 1681.9744509555319
	kShelfQ    = 0.7071752369554193
	kShelfGain = 3.99984385397
	kHPFreq    = 38.13547087613982
	kHPQ       = 0.5003270373253953

	loudnessOffset   = -0.691
	absoluteGate     = -70.0
	relativeGate     = -10.0
	shortTermGateRel = -20.0
)

// KWeight 返回逐声道K加权后的数据
func KWeight(buf *types.AudioBuffer) [][]float64 {
	fs := float64(buf.SampleRate)
	shelf := HighShelf(fs, kShelfFreq, kShelfQ, kShelfGain)
	hp := HighPass(fs, kHPFreq, kHPQ)

	chans := buf.Split()
	for ch := range chans {
		chans[ch] = hp.Process(shelf.Process(chans[ch]))
	}
	return chans
}

// blockPowers 计算每个块各声道均方之和
func blockPowers(chans [][]float64, block, hop int) []float64 {
	if len(chans) == 0 {
		return nil
	}
	frames := len(chans[0])
	if frames == 0 {
		return nil
	}
	if block > frames || block <= 0 {
		block, hop = frames, frames
	}
	if hop <= 0 {
		hop = block
	}

	var powers []float64
	for start := 0; start+block <= frames; start += hop {
		p := 0.0
		for _, data := range chans {
			p += MeanSquare(data[start : start+block])
		}
		powers = append(powers, p)
	}
	return powers
}

func powerToLUFS(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	return loudnessOffset + 10*math.Log10(p)
}

// IntegratedLoudness 估算积分响度 (LUFS)
//
// 400 ms 块、75% 重叠，绝对门限 -70 LUFS，相对门限 -10 LU。静音返回 -Inf。
func IntegratedLoudness(buf *types.AudioBuffer) float64 {
	if buf.IsEmpty() || buf.SampleRate <= 0 {
		return math.Inf(-1)
	}
	block := int(0.4 * float64(buf.SampleRate))
	powers := blockPowers(KWeight(buf), block, block/4)

	var gated []float64
	for _, p := range powers {
		if powerToLUFS(p) > absoluteGate {
			gated = append(gated, p)
		}
	}
	if len(gated) == 0 {
		return math.Inf(-1)
	}

	threshold := powerToLUFS(meanOf(gated)) + relativeGate
	var kept []float64
	for _, p := range gated {
		if powerToLUFS(p) > threshold {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		kept = gated
	}
	return powerToLUFS(meanOf(kept))
}

// ShortTermLoudness 返回3秒窗口、1秒步进的短时响度序列（已做门限）
func ShortTermLoudness(buf *types.AudioBuffer) []float64 {
	if buf.IsEmpty() || buf.SampleRate <= 0 {
		return nil
	}
	powers := blockPowers(KWeight(buf), 3*buf.SampleRate, buf.SampleRate)

	var gated []float64
	for _, p := range powers {
		if powerToLUFS(p) > absoluteGate {
			gated = append(gated, p)
		}
	}
	if len(gated) == 0 {
		return nil
	}

	threshold := powerToLUFS(meanOf(gated)) + shortTermGateRel
	var out []float64
	for _, p := range gated {
		if l := powerToLUFS(p); l > threshold {
			out = append(out, l)
		}
	}
	return out
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
