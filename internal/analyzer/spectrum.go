package analyzer

import (
	"fmt"
	"math"
	"math/cmplx"

	"audio-mastering-engine/internal/types"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// 编码质量等级
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityFair      = "Fair"
	QualityPoor      = "Poor"
)

const (
	spectrumWindows = 8
	highFreqSplitHz = 8000.0
)

// SpectrumAnalyzer 频谱分析器，通过高频截断判断编码质量
type SpectrumAnalyzer struct {
	sampleRate int
	windowSize int
}

// NewSpectrumAnalyzer 创建频谱分析器
func NewSpectrumAnalyzer(sampleRate int) *SpectrumAnalyzer {
	// 8K窗口，提供良好的频率分辨率
	return &SpectrumAnalyzer{
		sampleRate: sampleRate,
		windowSize: 8192,
	}
}

// SpectrumResult 频谱分析结果
type SpectrumResult struct {
	MaxFrequency    float64   // 最高有效频率
	CutoffFrequency float64   // 截断频率
	LossyCutoff     bool      // 是否匹配有损编码的典型截断
	Quality         string    // 编码质量等级
	Details         string    // 详细说明
	PowerSpectrum   []float64 // 平均功率谱
	FreqResolution  float64   // 每个频点的宽度 (Hz)
}

// AnalyzeSpectrum 分析音频频谱
func (s *SpectrumAnalyzer) AnalyzeSpectrum(samples []float64) (*SpectrumResult, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: 音频采样数据为空", types.ErrInvalidInput)
	}

	size := s.windowSize
	if len(samples) < size {
		size = floorPowerOf2(len(samples))
	}
	if size < minFrameSize {
		return nil, fmt.Errorf("%w: 音频过短，无法进行频谱分析", types.ErrInvalidInput)
	}

	// 在中间一半区域均匀取多个窗口，避开开头和结尾的静音
	starts := windowStarts(len(samples), size)
	win := window.Hamming(size)
	power := make([]float64, size/2)
	frame := make([]float64, size)
	for _, start := range starts {
		for i := range frame {
			frame[i] = samples[start+i] * win[i]
		}
		spectrum := fft.FFTReal(frame)
		for i := range power {
			m := cmplx.Abs(spectrum[i])
			power[i] += m * m / float64(len(starts))
		}
	}

	return s.analyzeFrequencyContent(power), nil
}

// windowStarts 返回各分析窗口的起点
func windowStarts(total, size int) []int {
	lo := total / 4
	hi := total*3/4 - size
	if hi < lo {
		lo = (total - size) / 2
		if lo < 0 {
			lo = 0
		}
		return []int{lo}
	}
	starts := make([]int, 0, spectrumWindows)
	for i := 0; i < spectrumWindows; i++ {
		starts = append(starts, lo+(hi-lo)*i/(spectrumWindows-1))
	}
	return starts
}

// analyzeFrequencyContent 分析频率内容
func (s *SpectrumAnalyzer) analyzeFrequencyContent(powerSpectrum []float64) *SpectrumResult {
	freqResolution := float64(s.sampleRate) / float64(len(powerSpectrum)*2)

	maxFreq := s.findMaxEffectiveFrequency(powerSpectrum, freqResolution)
	cutoffFreq := s.detectFrequencyCutoff(powerSpectrum, freqResolution)
	lossy, quality, details := s.gradeEncoding(maxFreq, cutoffFreq)

	return &SpectrumResult{
		MaxFrequency:    maxFreq,
		CutoffFrequency: cutoffFreq,
		LossyCutoff:     lossy,
		Quality:         quality,
		Details:         details,
		PowerSpectrum:   powerSpectrum,
		FreqResolution:  freqResolution,
	}
}

// findMaxEffectiveFrequency 找到最高有效频率
func (s *SpectrumAnalyzer) findMaxEffectiveFrequency(powerSpectrum []float64, freqResolution float64) float64 {
	noiseFloor := s.calculateNoiseFloor(powerSpectrum)

	// 最高频段本身就有可观能量时，内容一直延伸到奈奎斯特频率
	mean := 0.0
	for _, p := range powerSpectrum {
		mean += p
	}
	mean /= float64(len(powerSpectrum))
	if mean > 0 && noiseFloor >= mean*0.01 {
		return float64(len(powerSpectrum)-1) * freqResolution
	}

	// 从高频往低频搜索，找到最后一个显著高于噪声基底的频率
	threshold := noiseFloor * 10
	for i := len(powerSpectrum) - 1; i >= 0; i-- {
		if powerSpectrum[i] > threshold {
			return float64(i) * freqResolution
		}
	}
	return 0
}

// detectFrequencyCutoff 检测频率截断
func (s *SpectrumAnalyzer) detectFrequencyCutoff(powerSpectrum []float64, freqResolution float64) float64 {
	maxPower := 0.0
	for _, power := range powerSpectrum {
		if power > maxPower {
			maxPower = power
		}
	}

	// 阈值设为最大功率的1%，需要连续10个点都低于阈值
	threshold := maxPower * 0.01
	consecutiveLow := 0
	requiredConsecutive := 10

	for i := len(powerSpectrum) - 1; i >= 0; i-- {
		if powerSpectrum[i] < threshold {
			consecutiveLow++
			if consecutiveLow >= requiredConsecutive {
				return float64(i+requiredConsecutive) * freqResolution
			}
		} else {
			consecutiveLow = 0
		}
	}

	return float64(len(powerSpectrum)) * freqResolution
}

// calculateNoiseFloor 取功率谱的最后10%作为噪声基底的估计
func (s *SpectrumAnalyzer) calculateNoiseFloor(powerSpectrum []float64) float64 {
	startIdx := len(powerSpectrum) * 9 / 10
	sum := 0.0
	count := 0
	for i := startIdx; i < len(powerSpectrum); i++ {
		sum += powerSpectrum[i]
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// lossyCutoffs 常见有损编码的截断频率
var lossyCutoffs = []struct {
	freq    float64
	format  string
	quality string
}{
	{16000, "MP3 128kbps", QualityPoor},
	{17000, "MP3 160kbps", QualityFair},
	{19000, "MP3 192kbps", QualityFair},
	{20000, "MP3 256kbps", QualityGood},
	{21000, "MP3 320kbps", QualityGood},
}

// gradeEncoding 根据最高有效频率和截断频率评估编码质量
func (s *SpectrumAnalyzer) gradeEncoding(maxFreq, cutoffFreq float64) (bool, string, string) {
	nyquist := float64(s.sampleRate) / 2

	// 只有奈奎斯特频率明显高于截断点时才可能是有损编码留下的痕迹
	for _, c := range lossyCutoffs {
		if nyquist > c.freq+1000 && math.Abs(maxFreq-c.freq) < 500 {
			return true, c.quality, fmt.Sprintf("检测到%s格式的典型截断频率 (%.0f Hz)", c.format, maxFreq)
		}
	}

	ratio := 0.0
	if nyquist > 0 {
		ratio = maxFreq / nyquist
	}
	var quality string
	switch {
	case ratio >= 0.9:
		quality = QualityExcellent
	case ratio >= 0.75:
		quality = QualityGood
	case ratio >= 0.5:
		quality = QualityFair
	default:
		quality = QualityPoor
	}

	if cutoffFreq < nyquist*0.9 && quality == QualityExcellent {
		return false, QualityGood, fmt.Sprintf("在 %.0f Hz 附近检测到明显的频率截断", cutoffFreq)
	}
	return false, quality, fmt.Sprintf("最高有效频率 %.0f Hz，奈奎斯特频率 %.0f Hz", maxFreq, nyquist)
}

// HighFrequencyRatio 高频能量占总能量的比例
func (r *SpectrumResult) HighFrequencyRatio(sampleRate int) float64 {
	split := math.Min(highFreqSplitHz, float64(sampleRate)/4)
	total, high := 0.0, 0.0
	for i, p := range r.PowerSpectrum {
		total += p
		if float64(i)*r.FreqResolution >= split {
			high += p
		}
	}
	if total <= 0 {
		return 0
	}
	return high / total
}

// floorPowerOf2 不大于 n 的最大2的幂
func floorPowerOf2(n int) int {
	if n < 1 {
		return 0
	}
	power := 1
	for power*2 <= n {
		power <<= 1
	}
	return power
}
