package mastering

import (
	"errors"
	"fmt"

	"audio-mastering-engine/internal/encoder"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/types"

	"github.com/sirupsen/logrus"
)

// ExportResult 多格式导出结果，格式名 → 输出路径或错误
type ExportResult struct {
	Files    map[string]string `json:"files"`
	Failures map[string]string `json:"failures,omitempty"`
}

// Exporter 多格式导出器
type Exporter struct {
	registry *encoder.EncoderRegistry
	log      logrus.FieldLogger
}

// NewExporter 创建导出器，registry 为空时使用默认编码器
func NewExporter(registry *encoder.EncoderRegistry, log logrus.FieldLogger) *Exporter {
	if registry == nil {
		registry = encoder.NewEncoderRegistry()
	}
	return &Exporter{registry: registry, log: logging.OrDiscard(log)}
}

// Export 把缓冲区写成 base 加各格式扩展名的文件
//
// 每种格式独立导出，某一格式失败不影响其他格式。有失败时返回汇总错误，
// 已成功的文件仍记录在结果中。
func (e *Exporter) Export(buf *types.AudioBuffer, base string, formats []string) (*ExportResult, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: 未指定导出格式", types.ErrInvalidInput)
	}
	if base == "" {
		return nil, fmt.Errorf("%w: 未指定输出路径", types.ErrInvalidInput)
	}

	res := &ExportResult{Files: make(map[string]string), Failures: make(map[string]string)}
	var errs []error
	for _, format := range formats {
		path, err := e.exportOne(buf, base, format)
		if err != nil {
			res.Failures[format] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", format, err))
			e.log.WithField("format", format).WithError(err).Warn("导出失败")
			continue
		}
		res.Files[format] = path
		e.log.WithFields(logrus.Fields{"format": format, "path": path}).Info("导出完成")
	}
	return res, errors.Join(errs...)
}

func (e *Exporter) exportOne(buf *types.AudioBuffer, base, format string) (string, error) {
	enc, err := e.registry.Get(format)
	if err != nil {
		return "", err
	}
	path := encoder.OutputPath(base, enc)
	if err := encoder.WriteAtomic(path, enc, buf); err != nil {
		return "", err
	}
	return path, nil
}

// 衍生版本在导出结果中的标识
const (
	OutputPreview   = "preview"
	OutputRadioEdit = "radio_edit"
)

// ExportRelease 导出成品的全部格式，以及 WAV 格式的预览和电台版
//
// 预览写为 base-preview.wav，电台版写为 base-radio-edit.wav。
func (e *Exporter) ExportRelease(buf *types.AudioBuffer, base string, cfg types.MasteringConfig) (*ExportResult, error) {
	res, err := e.Export(buf, base, cfg.ExportFormats)
	if res == nil {
		return nil, err
	}
	errs := []error{err}

	derivatives := []struct {
		key    string
		suffix string
		cut    func() (*types.AudioBuffer, error)
	}{
		{OutputPreview, "-preview", func() (*types.AudioBuffer, error) {
			return Preview(buf, cfg.PreviewSeconds, cfg.FadeOutSeconds)
		}},
		{OutputRadioEdit, "-radio-edit", func() (*types.AudioBuffer, error) {
			return RadioEdit(buf, cfg.RadioEditSeconds, cfg.FadeOutSeconds)
		}},
	}
	for _, d := range derivatives {
		clip, err := d.cut()
		if err == nil {
			var path string
			if path, err = e.exportOne(clip, base+d.suffix, "wav"); err == nil {
				res.Files[d.key] = path
			}
		}
		if err != nil {
			res.Failures[d.key] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
			e.log.WithField("output", d.key).WithError(err).Warn("衍生版本导出失败")
		}
	}
	return res, errors.Join(errs...)
}
