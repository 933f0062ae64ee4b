package dsp

import (
	"fmt"

	"audio-mastering-engine/internal/types"
)

// DefaultSafety 默认防削波参数：峰值达到 0.95 时按 0.5 dB 步进衰减，最终保留 0.5 dB 余量
func DefaultSafety() types.SafetyConfig {
	return types.SafetyConfig{
		TriggerPeak: 0.95,
		StepDB:      0.5,
		HeadroomDB:  0.5,
	}
}

// ProtectClipping 原地执行防削波处理，返回施加的增益 (dB)
//
// 峰值未达到触发值时不做任何修改。
func ProtectClipping(samples []float64, cfg types.SafetyConfig) (float64, error) {
	if !Finite(samples) {
		return 0, fmt.Errorf("%w: 采样中包含 NaN 或 Inf", types.ErrProcessingFailed)
	}
	if cfg.TriggerPeak <= 0 || cfg.TriggerPeak > 1 {
		cfg.TriggerPeak = 0.95
	}
	if cfg.StepDB <= 0 {
		cfg.StepDB = 0.5
	}

	peak := Peak(samples)
	if peak < cfg.TriggerPeak {
		return 0, nil
	}

	gain := 1.0
	step := DBToLinear(-cfg.StepDB)
	for peak*gain >= cfg.TriggerPeak {
		gain *= step
	}

	// 归一化到目标余量而不是满幅
	if target := DBToLinear(-cfg.HeadroomDB) / peak; peak*target < cfg.TriggerPeak {
		gain = target
	}

	Scale(samples, gain)
	return LinearToDB(gain), nil
}
