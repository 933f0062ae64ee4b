package enhance

import (
	"fmt"
	"math"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"
)

// LoudnessGain 返回把缓冲区调整到目标响度所需的增益 (dB)
func LoudnessGain(buf *types.AudioBuffer, targetLUFS float64) (float64, error) {
	if math.IsNaN(targetLUFS) || math.IsInf(targetLUFS, 0) || targetLUFS > 0 {
		return 0, fmt.Errorf("%w: 目标响度 %.1f LUFS 无效", types.ErrInvalidInput, targetLUFS)
	}
	if buf.IsEmpty() {
		return 0, fmt.Errorf("%w: 缓冲区为空", types.ErrInvalidInput)
	}
	current := dsp.IntegratedLoudness(buf)
	if math.IsInf(current, -1) {
		return 0, fmt.Errorf("%w: 无法测量静音音频的响度", types.ErrProcessingFailed)
	}
	return targetLUFS - current, nil
}

// Normalize 将缓冲区响度调整到 targetLUFS，并执行防削波处理
//
// 峰值安全优先于精确命中目标响度。
func Normalize(buf *types.AudioBuffer, targetLUFS float64, safety types.SafetyConfig) (*types.AudioBuffer, error) {
	gainDB, err := LoudnessGain(buf, targetLUFS)
	if err != nil {
		return nil, err
	}

	out := buf.Clone()
	dsp.Scale(out.Samples, dsp.DBToLinear(gainDB))
	if _, err := dsp.ProtectClipping(out.Samples, safety); err != nil {
		return nil, err
	}
	return out, nil
}
