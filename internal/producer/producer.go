// Package producer 把验证、增强、混音、母带和导出串成一次完整的歌曲制作任务
package producer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audio-mastering-engine/internal/analyzer"
	"audio-mastering-engine/internal/config"
	"audio-mastering-engine/internal/encoder"
	"audio-mastering-engine/internal/enhance"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/mastering"
	"audio-mastering-engine/internal/mixer"
	"audio-mastering-engine/internal/report"
	"audio-mastering-engine/internal/types"
	"audio-mastering-engine/internal/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OutputReport 报告文件在输出列表中的标识
const OutputReport = "report"

// Job 一次制作任务
//
// Song 不为空时先拼接段落，否则混合 Vocals 与 Music；Music 为空时只对人声做母带。
type Job struct {
	ID             string
	Vocals         *types.AudioBuffer
	Music          *types.AudioBuffer
	Song           *types.StructuredSong
	Genre          string
	OutputDir      string
	Name           string // 输出文件名前缀，默认 "master"
	Enhance        bool   // 混音前对人声执行增强流程
	SkipValidation bool
}

// Report 任务报告，同时写入输出目录
type Report struct {
	JobID       string                             `json:"jobId"`
	CreatedAt   time.Time                          `json:"createdAt"`
	Genre       string                             `json:"genre"`
	Validation  map[string]*types.ValidationReport `json:"validation"`
	Enhancement *types.EnhancementReport           `json:"enhancement,omitempty"`
	Mastering   *mastering.Result                  `json:"mastering"`
	Analysis    *types.ComprehensiveAnalysis       `json:"analysis"`
	Outputs     map[string]string                  `json:"outputs"`
	Failures    map[string]string                  `json:"failures,omitempty"`
}

// Producer 歌曲制作流程
type Producer struct {
	cfg       *config.Config
	validator *validator.Validator
	pipeline  *enhance.Pipeline
	mixer     *mixer.Mixer
	assembler *mixer.Assembler
	chain     *mastering.Chain
	exporter  *mastering.Exporter
	log       logrus.FieldLogger
}

// New 按配置创建制作流程
func New(cfg *config.Config, log logrus.FieldLogger) *Producer {
	log = logging.OrDiscard(log)
	mx := mixer.NewMixer(cfg.Mix, log)
	return &Producer{
		cfg:       cfg,
		validator: validator.NewValidator(log),
		pipeline:  enhance.NewPipeline(cfg.Mix.Safety, log),
		mixer:     mx,
		assembler: mixer.NewAssembler(mx, log),
		chain:     mastering.NewChain(cfg.Mastering, log),
		exporter:  mastering.NewExporter(encoder.NewEncoderRegistry(), log),
		log:       log,
	}
}

// Produce 执行 验证 → (增强) → 混音/拼接 → 母带 → 导出成品、预览、电台版和报告
//
// 验证不通过时返回 ErrValidationFailed 且不写任何文件。部分格式导出失败时
// 仍返回报告和汇总后的错误。
func (p *Producer) Produce(ctx context.Context, job Job) (*Report, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Name == "" {
		job.Name = "master"
	}
	if job.OutputDir == "" {
		return nil, fmt.Errorf("%w: 未指定输出目录", types.ErrInvalidInput)
	}
	log := p.log.WithField("job_id", job.ID)

	rep := &Report{
		JobID:      job.ID,
		CreatedAt:  time.Now().UTC(),
		Validation: make(map[string]*types.ValidationReport),
		Outputs:    make(map[string]string),
		Failures:   make(map[string]string),
	}

	mixed, err := p.render(ctx, job, rep, log)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mastered, err := p.chain.Master(mixed, job.Genre)
	if err != nil {
		return nil, err
	}
	rep.Genre = mastered.Genre
	rep.Mastering = mastered
	final := mastered.Buffer

	if rep.Analysis, err = analyzer.Analyze(final); err != nil {
		return nil, fmt.Errorf("成品分析失败: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exportErr := p.writeOutputs(final, job, rep)

	reportPath := filepath.Join(job.OutputDir, job.Name+"-report.json")
	rep.Outputs[OutputReport] = reportPath
	if err := writeJSONFile(reportPath, rep); err != nil {
		delete(rep.Outputs, OutputReport)
		exportErr = errors.Join(exportErr, err)
	}

	log.WithFields(logrus.Fields{
		"genre":    rep.Genre,
		"lufs":     mastered.LUFS,
		"outputs":  len(rep.Outputs),
		"failures": len(rep.Failures),
	}).Info("制作任务完成")
	return rep, exportErr
}

// render 得到待母带处理的混音
func (p *Producer) render(ctx context.Context, job Job, rep *Report, log logrus.FieldLogger) (*types.AudioBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if job.Song != nil {
		song, err := p.assembler.Assemble(*job.Song)
		if err != nil {
			return nil, err
		}
		if err := p.gate("song", song, job, rep); err != nil {
			return nil, err
		}
		return song, nil
	}

	if job.Vocals.IsEmpty() {
		return nil, fmt.Errorf("%w: 缺少人声轨", types.ErrInvalidInput)
	}
	if err := p.gate("vocals", job.Vocals, job, rep); err != nil {
		return nil, err
	}

	vocals := job.Vocals
	if job.Enhance {
		enhanced, er, err := p.pipeline.Enhance(vocals, p.cfg.Enhancement)
		if err != nil {
			return nil, err
		}
		rep.Enhancement = er
		vocals = enhanced
	}

	if job.Music.IsEmpty() {
		return vocals, nil
	}
	// 伴奏会被循环或截断，只记录其验证结果
	rep.Validation["music"] = p.validator.Validate(job.Music, p.cfg.Validation)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mixed, err := p.mixer.Mix(p.mixer.Spec(vocals, job.Music))
	if err != nil {
		return nil, err
	}
	log.WithField("duration", mixed.Duration()).Debug("混音完成")
	return mixed, nil
}

// gate 执行质量验证，不通过时中止任务
func (p *Producer) gate(name string, buf *types.AudioBuffer, job Job, rep *Report) error {
	vr := p.validator.Validate(buf, p.cfg.Validation)
	rep.Validation[name] = vr
	if vr.IsValid || job.SkipValidation {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", types.ErrValidationFailed, name, strings.Join(vr.Errors, "; "))
}

// writeOutputs 导出成品和两个衍生版本，各项失败互不影响
func (p *Producer) writeOutputs(final *types.AudioBuffer, job Job, rep *Report) error {
	res, err := p.exporter.ExportRelease(final, filepath.Join(job.OutputDir, job.Name), p.cfg.Mastering)
	if res != nil {
		for k, path := range res.Files {
			rep.Outputs[k] = path
		}
		for k, msg := range res.Failures {
			rep.Failures[k] = msg
		}
	}
	return err
}

// writeJSONFile 原子写入 JSON 文件
func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: 创建输出目录失败: %v", types.ErrExportFailed, err)
	}
	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: 创建报告文件失败: %v", types.ErrExportFailed, err)
	}
	if err := report.WriteJSON(f, v, true); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", types.ErrExportFailed, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: 关闭报告文件失败: %v", types.ErrExportFailed, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: 重命名报告文件失败: %v", types.ErrExportFailed, err)
	}
	return nil
}
