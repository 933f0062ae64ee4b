package enhance

import (
	"fmt"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/types"

	"github.com/sirupsen/logrus"
)

// 增强阶段名称
const (
	StageNoiseReduction = "noise_reduction"
	StageCompression    = "compression"
	StageStereoWidening = "stereo_widening"
	StageNormalization  = "normalization"
	StageClipProtection = "clip_protection"
)

// Pipeline 按固定顺序执行增强阶段：降噪、压缩、立体声扩展、响度归一化
type Pipeline struct {
	noise  *NoiseReducer
	safety types.SafetyConfig
	log    logrus.FieldLogger
}

// NewPipeline 创建增强流程
func NewPipeline(safety types.SafetyConfig, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		noise:  NewNoiseReducer(),
		safety: safety,
		log:    logging.OrDiscard(log),
	}
}

type stage struct {
	name    string
	enabled bool
	run     func(*types.AudioBuffer) (*types.AudioBuffer, error)
}

// Enhance 执行请求中启用的阶段，未启用的阶段完全跳过
//
// 缓冲区标记为已母带处理且未强制时不做任何处理，并在报告中说明原因。
func (p *Pipeline) Enhance(buf *types.AudioBuffer, req types.EnhancementRequest) (*types.AudioBuffer, *types.EnhancementReport, error) {
	if buf.IsEmpty() {
		return nil, nil, fmt.Errorf("%w: 缓冲区为空", types.ErrInvalidInput)
	}

	stages := []stage{
		{StageNoiseReduction, req.ReduceNoise, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			return p.noise.Reduce(b, req.NoiseStrength)
		}},
		{StageCompression, req.Compress, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			return Compress(b, CompressorParams{
				ThresholdDB: req.ThresholdDB,
				Ratio:       req.Ratio,
				AttackMs:    req.AttackMs,
				ReleaseMs:   req.ReleaseMs,
			})
		}},
		{StageStereoWidening, req.WidenStereo, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			if b.Channels == 1 {
				p.log.Info("单声道输入，扩展前先复制为双声道")
			}
			return Widen(b, req.StereoWidth)
		}},
		{StageNormalization, req.Normalize, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			return Normalize(b, req.TargetLUFS, p.safety)
		}},
	}

	report := &types.EnhancementReport{Applied: []string{}, Skipped: []string{}}

	if buf.AlreadyMastered && !req.Force {
		for _, s := range stages {
			report.Skipped = append(report.Skipped, s.name)
		}
		report.SkipReason = "音频已完成母带处理，跳过增强"
		p.log.WithField("reason", report.SkipReason).Warn("增强已跳过")
		return buf.Clone(), report, nil
	}

	current := buf
	for _, s := range stages {
		if !s.enabled {
			report.Skipped = append(report.Skipped, s.name)
			continue
		}
		next, err := s.run(current)
		if err != nil {
			return nil, nil, fmt.Errorf("增强阶段 %s 失败: %w", s.name, err)
		}
		p.log.WithFields(logrus.Fields{
			"stage":  s.name,
			"peakDB": dsp.LinearToDB(dsp.Peak(next.Samples)),
		}).Debug("增强阶段完成")
		report.Applied = append(report.Applied, s.name)
		current = next
	}

	if current == buf {
		current = buf.Clone()
	}
	gainDB, err := dsp.ProtectClipping(current.Samples, p.safety)
	if err != nil {
		return nil, nil, fmt.Errorf("增强阶段 %s 失败: %w", StageClipProtection, err)
	}
	if gainDB != 0 {
		report.Applied = append(report.Applied, StageClipProtection)
	}

	return current, report, nil
}
