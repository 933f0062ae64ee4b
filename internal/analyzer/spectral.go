package analyzer

import (
	"fmt"
	"math"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"

	"github.com/mjibson/go-dsp/spectral"
	"github.com/mjibson/go-dsp/window"
)

const (
	welchSize      = 4096
	tonalFlatness  = 0.1
	noisyFlatness  = 0.5
	flatnessFloor  = 1e-20
	flatnessLowHz  = 20.0
	flatnessHighHz = 20000.0
)

// Bands 频段划分
var Bands = []types.BandEnergy{
	{Name: "sub_bass", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "low_mid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "high_mid", LowHz: 2000, HighHz: 4000},
	{Name: "presence", LowHz: 4000, HighHz: 6000},
	{Name: "brilliance", LowHz: 6000, HighHz: 20000},
}

// AnalyzeSpectral 用 Welch 功率谱计算各频段能量和频谱平坦度
func AnalyzeSpectral(buf *types.AudioBuffer) (types.SpectralMetrics, error) {
	if buf.IsEmpty() {
		return types.SpectralMetrics{}, fmt.Errorf("%w: 缓冲区为空", types.ErrInvalidInput)
	}
	mono := buf.Mono()
	nfft := welchSize
	for nfft > len(mono) && nfft > minFrameSize {
		nfft /= 2
	}
	if len(mono) < nfft {
		return types.SpectralMetrics{}, fmt.Errorf("%w: 音频过短，无法分析频谱", types.ErrInvalidInput)
	}

	pxx, freqs := spectral.Pwelch(mono, float64(buf.SampleRate), &spectral.PwelchOptions{
		NFFT:      nfft,
		Noverlap:  nfft / 2,
		Window:    window.Hann,
		Scale_off: true,
	})

	// 奈奎斯特频点不计入任何频段
	nyquist := float64(buf.SampleRate) / 2
	m := types.SpectralMetrics{Bands: make([]types.BandEnergy, len(Bands))}
	for i, band := range Bands {
		sum, count := 0.0, 0
		for k, f := range freqs {
			if f >= band.LowHz && f < band.HighHz && f < nyquist {
				sum += pxx[k]
				count++
			}
		}
		band.EnergyDB = dsp.MinDB
		if count > 0 {
			band.EnergyDB = dsp.PowerToDB(sum / float64(count))
		}
		m.Bands[i] = band
	}

	m.SpectralFlatness = flatness(pxx, freqs, nyquist)
	m.IsTonal = m.SpectralFlatness < tonalFlatness
	m.IsNoisy = m.SpectralFlatness > noisyFlatness
	return m, nil
}

// flatness 几何均值与算术均值之比，静音返回 0
func flatness(pxx, freqs []float64, nyquist float64) float64 {
	hi := math.Min(flatnessHighHz, nyquist)
	logSum, sum := 0.0, 0.0
	n := 0
	for k, f := range freqs {
		if f < flatnessLowHz || f > hi {
			continue
		}
		p := pxx[k] + flatnessFloor
		logSum += math.Log(p)
		sum += p
		n++
	}
	if n == 0 || sum <= float64(n)*flatnessFloor*1.0001 {
		return 0
	}
	return dsp.Clamp(math.Exp(logSum/float64(n))/(sum/float64(n)), 0, 1)
}

// spectralScore 按平坦度和频段平衡打分
func spectralScore(m types.SpectralMetrics) float64 {
	s := 100.0
	if m.IsNoisy {
		s -= 30
	}

	var levels []float64
	for _, b := range m.Bands {
		if b.EnergyDB > dsp.MinDB {
			levels = append(levels, b.EnergyDB)
		}
	}
	if len(levels) < 2 {
		return dsp.Clamp(s-40, 0, 100)
	}
	mean := dsp.Mean(levels)
	variance := 0.0
	for _, l := range levels {
		variance += (l - mean) * (l - mean)
	}
	std := math.Sqrt(variance / float64(len(levels)))
	if std > 15 {
		s -= 2 * (std - 15)
	}
	return dsp.Clamp(s, 0, 100)
}
