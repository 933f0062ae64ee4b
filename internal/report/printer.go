package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"audio-mastering-engine/internal/types"
)

// Printer 带样式的报告输出
type Printer struct {
	w io.Writer
}

// NewPrinter 创建输出到 w 的打印器
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// WriteJSON 输出 JSON，indent 为真时缩进
func WriteJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}
	return nil
}

func (p *Printer) title(text string) {
	fmt.Fprintf(p.w, "\n%s\n", TitleStyle.Render("=== "+text+" ==="))
}

func (p *Printer) kv(key string, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(fmt.Sprintf(format, args...)))
}

// Validation 打印质量验证报告
func (p *Printer) Validation(name string, r *types.ValidationReport) {
	p.title("质量验证: " + name)
	if r.IsValid {
		fmt.Fprintln(p.w, OKStyle.Render("✅ 验证通过"))
	} else {
		fmt.Fprintln(p.w, ErrorStyle.Render("❌ 验证未通过"))
	}
	p.kv("评分", "%.1f", r.QualityScore)
	fmt.Fprintf(p.w, "%s %s\n", KeyStyle.Render("等级:"), gradeStyle(r.Grade).Render(r.Grade))

	m := r.Metrics
	p.kv("时长", "%.2f 秒", m.Duration)
	p.kv("采样率", "%d Hz", m.SampleRate)
	p.kv("声道数", "%d", m.Channels)
	if m.BitDepth > 0 {
		p.kv("位深度", "%d bit", m.BitDepth)
	}
	p.kv("削波比例", "%.3f%%", m.ClippingRatio*100)
	p.kv("静音比例", "%.1f%%", m.SilenceRatio*100)
	p.kv("动态范围", "%.1f dB", m.DynamicRangeDB)
	p.kv("直流偏移", "%.4f", m.DCOffset)
	p.kv("文件大小", "%.2f MB", m.FileSizeMB)

	for _, e := range r.Errors {
		fmt.Fprintf(p.w, "%s %s\n", ErrorStyle.Render("错误:"), e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(p.w, "%s %s\n", WarnStyle.Render("警告:"), w)
	}
}

// Analysis 打印综合分析报告
func (p *Printer) Analysis(a *types.ComprehensiveAnalysis) {
	fmt.Fprintf(p.w, "%s %s (%.1f)\n", KeyStyle.Render("综合等级:"), gradeStyle(a.OverallGrade).Render(a.OverallGrade), a.OverallScore)

	l := a.Loudness
	p.kv("响度", "%.1f LUFS, 范围 %.1f LU", l.LUFS, l.LoudnessRange)
	p.kv("电平", "RMS %.1f dB, 峰值 %.1f dB, 真峰值 %.1f dBTP", l.RMSDB, l.PeakDB, l.TruePeakDB)
	p.kv("峰值因数", "%.1f dB, 余量 %.1f dB", l.CrestFactorDB, l.HeadroomDB)
	if l.IsClipping {
		fmt.Fprintln(p.w, WarnStyle.Render("⚠️  检测到削波"))
	}

	c := a.Clarity
	fmt.Fprintf(p.w, "%s %s (%.1f)\n", KeyStyle.Render("清晰度:"), gradeStyle(c.Grade).Render(c.Grade), c.ClarityScore)
	p.kv("频谱质心", "%.0f Hz, 滚降 %.0f Hz, 带宽 %.0f Hz", c.SpectralCentroid, c.SpectralRolloff, c.SpectralBandwidth)
	p.kv("信噪比", "%.1f dB, 对比度 %.1f dB, 过零率 %.4f", c.SNRDB, c.SpectralContrast, c.ZeroCrossingRate)

	s := a.Spectral
	bands := make([]string, 0, len(s.Bands))
	for _, b := range s.Bands {
		bands = append(bands, fmt.Sprintf("%s %.1f", b.Name, b.EnergyDB))
	}
	p.kv("频段能量 (dB)", "%s", strings.Join(bands, ", "))
	p.kv("频谱平坦度", "%.3f (tonal=%t, noisy=%t)", s.SpectralFlatness, s.IsTonal, s.IsNoisy)

	pf := a.Performance
	p.kv("码率", "%.0f kbps, 文件 %.2f MB", pf.BitrateKbps, pf.FileSizeMB)
	p.kv("最高有效频率", "%.0f Hz, 高频占比 %.3f", pf.MaxFrequency, pf.HighFreqRatio)
	if pf.CutoffHz > 0 {
		p.kv("截断频率", "%.0f Hz", pf.CutoffHz)
	}
	fmt.Fprintf(p.w, "%s %s %s\n", KeyStyle.Render("编码质量:"), gradeStyle(pf.EncodingQuality).Render(pf.EncodingQuality), pf.Details)
}

// AnalysisResult 打印批量分析中单个文件的结果
func (p *Printer) AnalysisResult(r *types.AnalysisResult) {
	p.title(filepath.Base(r.FilePath))
	p.kv("路径", "%s", r.FilePath)
	if r.Format != "" {
		p.kv("格式", "%s", r.Format)
	}
	fmt.Fprintf(p.w, "%s %s\n", KeyStyle.Render("状态:"), statusStyle(r.Status).Render(r.Status))

	if r.Error != "" {
		fmt.Fprintf(p.w, "%s %s\n", ErrorStyle.Render("错误:"), r.Error)
		return
	}

	if r.Metadata.Title != "" {
		p.kv("标题", "%s", r.Metadata.Title)
	}
	if r.Metadata.Artist != "" {
		p.kv("艺术家", "%s", r.Metadata.Artist)
	}
	if r.Metadata.Album != "" {
		p.kv("专辑", "%s", r.Metadata.Album)
	}
	if r.Analysis != nil {
		p.kv("规格", "%d Hz / %d bit / %d 声道 / %.2f 秒",
			r.Analysis.Performance.SampleRate, r.Analysis.Performance.BitDepth,
			r.Analysis.Performance.Channels, r.Analysis.Performance.Duration)
		p.Analysis(r.Analysis)
	}
}

// Summary 打印批量分析统计
func (p *Printer) Summary(results []*types.AnalysisResult) {
	ok, warn, failed := 0, 0, 0
	grades := map[string]int{}
	for _, r := range results {
		switch r.Status {
		case "OK":
			ok++
		case "WARN":
			warn++
		default:
			failed++
		}
		if r.Analysis != nil {
			grades[r.Analysis.OverallGrade]++
		}
	}

	p.title("分析统计")
	p.kv("总文件数", "%d", len(results))
	p.kv("正常文件", "%d", ok)
	p.kv("需要关注", "%d", warn)
	if failed > 0 {
		p.kv("错误文件", "%d", failed)
	}
	for _, g := range []string{"A", "B", "C", "D", "F"} {
		if n := grades[g]; n > 0 {
			p.kv("等级 "+g, "%d", n)
		}
	}

	if warn > 0 || failed > 0 {
		fmt.Fprintf(p.w, "\n%s\n", WarnStyle.Render(fmt.Sprintf("⚠️  %d 个文件需要进一步检查", warn+failed)))
	} else {
		fmt.Fprintf(p.w, "\n%s\n", OKStyle.Render("✅ 所有文件质量正常"))
	}
}

// Enhancement 打印增强流程记录
func (p *Printer) Enhancement(r *types.EnhancementReport) {
	p.title("增强处理")
	if r.SkipReason != "" {
		fmt.Fprintln(p.w, WarnStyle.Render("⚠️  "+r.SkipReason))
	}
	if len(r.Applied) > 0 {
		p.kv("已执行", "%s", strings.Join(r.Applied, " → "))
	}
	if len(r.Skipped) > 0 {
		p.kv("已跳过", "%s", strings.Join(r.Skipped, ", "))
	}
}

// Outputs 打印生成的文件列表
func (p *Printer) Outputs(label string, files map[string]string) {
	p.title(label)
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.kv(k, "%s", files[k])
	}
}

// Failures 打印失败项
func (p *Printer) Failures(failures map[string]string) {
	keys := make([]string, 0, len(failures))
	for k := range failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.w, "%s %s: %s\n", ErrorStyle.Render("失败:"), k, failures[k])
	}
}
