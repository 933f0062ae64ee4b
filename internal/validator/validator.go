// Package validator 按可配置阈值检查音频质量并给出评分
package validator

import (
	"fmt"
	"math"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/types"

	"github.com/sirupsen/logrus"
)

const (
	errorPenalty   = 20.0
	warningPenalty = 5.0
	bonus          = 5.0

	idealMinDynamicRange = 8.0
	idealMaxDynamicRange = 20.0
	idealMaxSilence      = 0.05

	wavHeaderBytes = 44
)

// Validator 质量验证器
type Validator struct {
	log logrus.FieldLogger
}

// NewValidator 创建验证器
func NewValidator(log logrus.FieldLogger) *Validator {
	return &Validator{log: logging.OrDiscard(log)}
}

// Validate 检查缓冲区，不修改输入
func (v *Validator) Validate(buf *types.AudioBuffer, c types.ValidationConstraints) *types.ValidationReport {
	report := &types.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}
	if buf.IsEmpty() {
		report.Errors = append(report.Errors, "音频为空")
		report.Grade = Grade(0)
		return report
	}

	m := measure(buf, c.SilenceFloorDB)
	report.Metrics = m

	if m.Duration < c.MinDuration {
		report.Errors = append(report.Errors, fmt.Sprintf("时长 %.2f 秒短于最小值 %.2f 秒", m.Duration, c.MinDuration))
	}
	if c.MaxDuration > 0 && m.Duration > c.MaxDuration {
		report.Errors = append(report.Errors, fmt.Sprintf("时长 %.2f 秒超过最大值 %.2f 秒", m.Duration, c.MaxDuration))
	}
	if m.SampleRate < c.MinSampleRate {
		report.Errors = append(report.Errors, fmt.Sprintf("采样率 %d Hz 低于最小值 %d Hz", m.SampleRate, c.MinSampleRate))
	}
	if c.MaxFileSizeMB > 0 && m.FileSizeMB > c.MaxFileSizeMB {
		report.Errors = append(report.Errors, fmt.Sprintf("文件大小 %.2f MB 超过上限 %.2f MB", m.FileSizeMB, c.MaxFileSizeMB))
	}

	// 削波
	if m.ClippingRatio > 0 {
		msg := fmt.Sprintf("削波采样占比 %.2f%%", m.ClippingRatio*100)
		if c.ClippingErrorRatio > 0 && m.ClippingRatio > c.ClippingErrorRatio {
			report.Errors = append(report.Errors, msg)
		} else {
			report.Warnings = append(report.Warnings, msg)
		}
	}

	// 静音
	if c.SilenceWarnRatio > 0 && m.SilenceRatio > c.SilenceWarnRatio {
		report.Warnings = append(report.Warnings, fmt.Sprintf("静音占比 %.1f%% 过高", m.SilenceRatio*100))
	}

	// 动态范围
	switch {
	case c.MinDynamicRangeDB > 0 && m.DynamicRangeDB < c.MinDynamicRangeDB:
		report.Warnings = append(report.Warnings, fmt.Sprintf("动态范围 %.1f dB 过小，可能过度压缩", m.DynamicRangeDB))
	case c.MaxDynamicRangeDB > 0 && m.DynamicRangeDB > c.MaxDynamicRangeDB:
		report.Warnings = append(report.Warnings, fmt.Sprintf("动态范围 %.1f dB 过大，电平不稳定", m.DynamicRangeDB))
	}

	// 直流偏移
	if c.MaxDCOffset > 0 && math.Abs(m.DCOffset) > c.MaxDCOffset {
		report.Warnings = append(report.Warnings, fmt.Sprintf("直流偏移 %.4f", m.DCOffset))
	}

	report.IsValid = len(report.Errors) == 0
	report.QualityScore = score(m, len(report.Errors), len(report.Warnings))
	report.Grade = Grade(report.QualityScore)

	v.log.WithFields(logrus.Fields{
		"valid":    report.IsValid,
		"errors":   len(report.Errors),
		"warnings": len(report.Warnings),
		"score":    report.QualityScore,
	}).Debug("质量验证完成")

	return report
}

// measure 计算验证所需的全部指标
func measure(buf *types.AudioBuffer, silenceFloorDB float64) types.QualityMetrics {
	samples := buf.Samples
	if silenceFloorDB >= 0 {
		silenceFloorDB = -50
	}
	silenceFloor := dsp.DBToLinear(silenceFloorDB)

	peak := dsp.Peak(samples)
	rms := dsp.RMS(samples)
	dr := 0.0
	if rms > 0 {
		dr = 20 * math.Log10(peak/rms)
	}

	size := buf.FileSize
	if size <= 0 {
		bitDepth := buf.BitDepth
		if bitDepth <= 0 {
			bitDepth = 16
		}
		size = int64(len(samples))*int64(bitDepth/8) + wavHeaderBytes
	}

	return types.QualityMetrics{
		Duration:       buf.Duration(),
		SampleRate:     buf.SampleRate,
		Channels:       buf.Channels,
		BitDepth:       buf.BitDepth,
		ClippingRatio:  dsp.Ratio(samples, func(x float64) bool { return math.Abs(x) >= dsp.ClipLevel }),
		SilenceRatio:   dsp.Ratio(samples, func(x float64) bool { return math.Abs(x) < silenceFloor }),
		DynamicRangeDB: dr,
		DCOffset:       dsp.Mean(samples),
		FileSizeMB:     float64(size) / (1024 * 1024),
	}
}

func score(m types.QualityMetrics, errs, warns int) float64 {
	s := 100 - errorPenalty*float64(errs) - warningPenalty*float64(warns)
	if m.DynamicRangeDB >= idealMinDynamicRange && m.DynamicRangeDB <= idealMaxDynamicRange {
		s += bonus
	}
	if m.ClippingRatio == 0 && m.SilenceRatio < idealMaxSilence {
		s += bonus
	}
	return dsp.Clamp(s, 0, 100)
}

// Grade 分数转字母等级
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
