package dsp

import "math"

// Biquad 二阶IIR滤波器系数（已按 a0 归一化）
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// safeFreq 将截止频率限制在奈奎斯特频率以内
func safeFreq(sampleRate, freq float64) float64 {
	if limit := sampleRate * 0.45; freq > limit {
		return limit
	}
	return freq
}

func normalize(b0, b1, b2, a0, a1, a2 float64) Biquad {
	return Biquad{B0: b0 / a0, B1: b1 / a0, B2: b2 / a0, A1: a1 / a0, A2: a2 / a0}
}

// HighPass RBJ 高通
func HighPass(sampleRate, freq, q float64) Biquad {
	w0 := 2 * math.Pi * safeFreq(sampleRate, freq) / sampleRate
	cosW, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	return normalize(
		(1+cosW)/2, -(1 + cosW), (1+cosW)/2,
		1+alpha, -2*cosW, 1-alpha,
	)
}

// LowShelf RBJ 低架
func LowShelf(sampleRate, freq, q, gainDB float64) Biquad {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * safeFreq(sampleRate, freq) / sampleRate
	cosW, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	sq := 2 * math.Sqrt(a) * alpha
	return normalize(
		a*((a+1)-(a-1)*cosW+sq),
		2*a*((a-1)-(a+1)*cosW),
		a*((a+1)-(a-1)*cosW-sq),
		(a+1)+(a-1)*cosW+sq,
		-2*((a-1)+(a+1)*cosW),
		(a+1)+(a-1)*cosW-sq,
	)
}

// HighShelf RBJ 高架
func HighShelf(sampleRate, freq, q, gainDB float64) Biquad {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * safeFreq(sampleRate, freq) / sampleRate
	cosW, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	sq := 2 * math.Sqrt(a) * alpha
	return normalize(
		a*((a+1)+(a-1)*cosW+sq),
		-2*a*((a-1)+(a+1)*cosW),
		a*((a+1)+(a-1)*cosW-sq),
		(a+1)-(a-1)*cosW+sq,
		2*((a-1)-(a+1)*cosW),
		(a+1)-(a-1)*cosW-sq,
	)
}

// Process 对单声道数据滤波并返回新切片
func (q Biquad) Process(in []float64) []float64 {
	out := make([]float64, len(in))
	var x1, x2, y1, y2 float64
	for i, x := range in {
		y := q.B0*x + q.B1*x1 + q.B2*x2 - q.A1*y1 - q.A2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		out[i] = y
	}
	return out
}

// ProcessInterleaved 对交错数据逐声道原地滤波
func (q Biquad) ProcessInterleaved(samples []float64, channels int) {
	for ch := 0; ch < channels; ch++ {
		var x1, x2, y1, y2 float64
		for i := ch; i < len(samples); i += channels {
			x := samples[i]
			y := q.B0*x + q.B1*x1 + q.B2*x2 - q.A1*y1 - q.A2*y2
			x2, x1 = x1, x
			y2, y1 = y1, y
			samples[i] = y
		}
	}
}
