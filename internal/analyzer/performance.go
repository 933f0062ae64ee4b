package analyzer

import (
	"fmt"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"
)

const estimatedHeaderBytes = 44

// AnalyzePerformance 统计文件规格、估算码率并评估编码质量
func AnalyzePerformance(buf *types.AudioBuffer) (types.PerformanceMetrics, error) {
	if buf.IsEmpty() {
		return types.PerformanceMetrics{}, fmt.Errorf("%w: 缓冲区为空", types.ErrInvalidInput)
	}

	bitDepth := buf.BitDepth
	size := buf.FileSize
	if size <= 0 {
		bd := bitDepth
		if bd <= 0 {
			bd = 16
		}
		size = int64(len(buf.Samples))*int64(bd/8) + estimatedHeaderBytes
	}

	m := types.PerformanceMetrics{
		FileSizeMB: float64(size) / (1024 * 1024),
		Duration:   buf.Duration(),
		SampleRate: buf.SampleRate,
		BitDepth:   bitDepth,
		Channels:   buf.Channels,
	}
	if m.Duration > 0 {
		m.BitrateKbps = float64(size) * 8 / m.Duration / 1000
	}

	spectrum, err := NewSpectrumAnalyzer(buf.SampleRate).AnalyzeSpectrum(buf.Mono())
	if err != nil {
		return m, err
	}
	m.MaxFrequency = spectrum.MaxFrequency
	m.HighFreqRatio = spectrum.HighFrequencyRatio(buf.SampleRate)
	if spectrum.CutoffFrequency < float64(buf.SampleRate)/2*0.98 {
		m.CutoffHz = spectrum.CutoffFrequency
	}
	m.EncodingQuality = spectrum.Quality
	m.Details = spectrum.Details
	return m, nil
}

// performanceScore 编码质量为主，低采样率扣分
func performanceScore(m types.PerformanceMetrics) float64 {
	var s float64
	switch m.EncodingQuality {
	case QualityExcellent:
		s = 100
	case QualityGood:
		s = 80
	case QualityFair:
		s = 60
	default:
		s = 40
	}
	if m.SampleRate < 44100 {
		s -= 20
	}
	if m.BitDepth > 0 && m.BitDepth < 16 {
		s -= 20
	}
	return dsp.Clamp(s, 0, 100)
}
