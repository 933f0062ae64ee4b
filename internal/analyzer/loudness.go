package analyzer

import (
	"fmt"
	"math"
	"sort"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"

	"gonum.org/v1/gonum/stat"
)

// 响度范围使用的短时响度分位
const (
	lraLowPercentile  = 0.10
	lraHighPercentile = 0.95
)

// AnalyzeLoudness 测量电平、真峰值、积分响度和响度范围
func AnalyzeLoudness(buf *types.AudioBuffer) (types.LoudnessMetrics, error) {
	if buf.IsEmpty() {
		return types.LoudnessMetrics{}, fmt.Errorf("%w: 缓冲区为空", types.ErrInvalidInput)
	}

	peak := dsp.Peak(buf.Samples)
	rmsDB := dsp.LinearToDB(dsp.RMS(buf.Samples))
	peakDB := dsp.LinearToDB(peak)
	truePeakDB := dsp.LinearToDB(dsp.TruePeak(buf.Samples, buf.Channels))

	lufs := dsp.IntegratedLoudness(buf)
	if math.IsInf(lufs, -1) {
		lufs = dsp.MinDB
	}

	return types.LoudnessMetrics{
		RMSDB:         rmsDB,
		PeakDB:        peakDB,
		TruePeakDB:    truePeakDB,
		LUFS:          lufs,
		CrestFactorDB: peakDB - rmsDB,
		LoudnessRange: loudnessRange(buf),
		HeadroomDB:    -truePeakDB,
		IsClipping:    peak >= dsp.ClipLevel,
	}, nil
}

// loudnessRange 短时响度高低分位之差 (LU)
func loudnessRange(buf *types.AudioBuffer) float64 {
	st := dsp.ShortTermLoudness(buf)
	if len(st) < 2 {
		return 0
	}
	sort.Float64s(st)
	hi := stat.Quantile(lraHighPercentile, stat.Empirical, st, nil)
	lo := stat.Quantile(lraLowPercentile, stat.Empirical, st, nil)
	return hi - lo
}

// loudnessScore 以流媒体常用的 -14 LUFS 为参考给响度打分
func loudnessScore(m types.LoudnessMetrics) float64 {
	const reference = -14.0
	s := 100 - 3*math.Abs(m.LUFS-reference)
	if m.IsClipping {
		s -= 30
	} else if m.TruePeakDB > -1 {
		s -= 10
	}
	if m.CrestFactorDB < 6 {
		s -= 10
	}
	return dsp.Clamp(s, 0, 100)
}
