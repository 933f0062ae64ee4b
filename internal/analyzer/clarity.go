package analyzer

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/stat"
)

const (
	clarityFrameSize = 2048
	rolloffFraction  = 0.85
	contrastFraction = 0.2
	maxSNRDB         = 60.0
	maxContrastDB    = 80.0
	minFrameSize     = 64
)

// AnalyzeClarity 计算频谱质心、滚降、带宽、过零率、信噪比和频谱对比度
func AnalyzeClarity(buf *types.AudioBuffer) (types.ClarityMetrics, error) {
	if buf.IsEmpty() {
		return types.ClarityMetrics{}, fmt.Errorf("%w: 缓冲区为空", types.ErrInvalidInput)
	}
	mono := buf.Mono()
	n := clarityFrameSize
	for n > len(mono) && n > minFrameSize {
		n /= 2
	}
	if len(mono) < n {
		return types.ClarityMetrics{}, fmt.Errorf("%w: 音频过短，无法分析清晰度", types.ErrInvalidInput)
	}

	sr := float64(buf.SampleRate)
	binHz := sr / float64(n)
	bins := n/2 + 1
	win := window.Hann(n)

	frame := make([]float64, n)
	mags := make([]float64, bins)
	avgPower := make([]float64, bins)
	var centroidSum, rolloffSum, bandwidthSum, contrastSum float64
	frames := 0

	for start := 0; start+n <= len(mono); start += n / 2 {
		for i := range frame {
			frame[i] = mono[start+i] * win[i]
		}
		spec := fft.FFTReal(frame)

		magSum, energy := 0.0, 0.0
		for k := 0; k < bins; k++ {
			m := cmplx.Abs(spec[k])
			mags[k] = m
			magSum += m
			energy += m * m
			avgPower[k] += m * m
		}
		if magSum < 1e-9 {
			continue
		}
		frames++

		centroid := 0.0
		for k, m := range mags {
			centroid += float64(k) * binHz * m
		}
		centroid /= magSum

		spread := 0.0
		for k, m := range mags {
			d := float64(k)*binHz - centroid
			spread += d * d * m
		}

		cum, rolloff := 0.0, 0.0
		for k, m := range mags {
			cum += m * m
			if cum >= rolloffFraction*energy {
				rolloff = float64(k) * binHz
				break
			}
		}

		centroidSum += centroid
		bandwidthSum += math.Sqrt(spread / magSum)
		rolloffSum += rolloff
		contrastSum += frameContrast(mags)
	}

	m := types.ClarityMetrics{ZeroCrossingRate: zeroCrossingRate(mono)}
	if frames == 0 {
		m.Grade = clarityGrade(0)
		return m, nil
	}

	f := float64(frames)
	m.SpectralCentroid = centroidSum / f
	m.SpectralRolloff = rolloffSum / f
	m.SpectralBandwidth = bandwidthSum / f
	m.SpectralContrast = contrastSum / f
	m.SNRDB = spectralSNR(avgPower)
	m.ClarityScore = clarityScore(m)
	m.Grade = clarityGrade(m.ClarityScore)
	return m, nil
}

// frameContrast 峰值频点与谷值频点平均幅度之比 (dB)
func frameContrast(mags []float64) float64 {
	sorted := append([]float64(nil), mags...)
	sort.Float64s(sorted)
	q := int(float64(len(sorted)) * contrastFraction)
	if q < 1 {
		q = 1
	}
	valley := dsp.Mean(sorted[:q])
	peak := dsp.Mean(sorted[len(sorted)-q:])
	c := 20 * math.Log10((peak+1e-12)/(valley+1e-12))
	return dsp.Clamp(c, 0, maxContrastDB)
}

// spectralSNR 以频点功率中位数作为噪声底估计信噪比
func spectralSNR(power []float64) float64 {
	sorted := append([]float64(nil), power...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	total := 0.0
	for _, p := range power {
		total += p
	}
	if median <= 0 {
		return maxSNRDB
	}
	snr := 10 * math.Log10(total/(median*float64(len(power))))
	return dsp.Clamp(snr, 0, maxSNRDB)
}

// zeroCrossingRate 每个采样间隔的过零比例
func zeroCrossingRate(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(x); i++ {
		if (x[i-1] >= 0) != (x[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(x)-1)
}

func clarityScore(m types.ClarityMetrics) float64 {
	snr := dsp.Clamp(m.SNRDB/40, 0, 1)

	var brightness float64
	switch c := m.SpectralCentroid; {
	case c < 800:
		brightness = c / 800
	case c <= 4000:
		brightness = 1
	default:
		brightness = dsp.Clamp(1-(c-4000)/8000, 0, 1)
	}

	contrast := dsp.Clamp(m.SpectralContrast/40, 0, 1)
	noisiness := 1 - dsp.Clamp((m.ZeroCrossingRate-0.1)/0.3, 0, 1)

	return 40*snr + 25*brightness + 20*contrast + 15*noisiness
}

func clarityGrade(score float64) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 70:
		return "Very Good"
	case score >= 55:
		return "Good"
	case score >= 40:
		return "Fair"
	case score >= 25:
		return "Poor"
	default:
		return "Very Poor"
	}
}
