package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"audio-mastering-engine/internal/mastering"
	"audio-mastering-engine/internal/report"

	"github.com/spf13/cobra"
)

var (
	genre          string
	formats        string
	previewSeconds float64
	radioSeconds   float64
)

var masterCmd = &cobra.Command{
	Use:   "master <input> <output-base>",
	Short: "按曲风做母带处理并导出多种格式",
	Long: `执行 均衡 → 压缩 → 谐波激励 → 立体声增强 → 响度标准化 → 峰值限制。

成品写为 <output-base>.<ext>，同时生成 <output-base>-preview.wav 和 <output-base>-radio-edit.wav。
支持的曲风: pop, rock, electronic, hiphop, metal, jazz, classical，未知曲风使用默认参数。
未指定 --genre 时使用输入文件标签中的曲风。`,
	Args: cobra.ExactArgs(2),
	RunE: runMaster,
}

func init() {
	f := masterCmd.Flags()
	f.StringVarP(&genre, "genre", "g", "", "曲风")
	f.StringVar(&formats, "formats", "", "逗号分隔的导出格式 (wav, wav24, flac, opus)")
	f.Float64Var(&previewSeconds, "preview", 0, "预览时长 (秒)，0 使用配置值")
	f.Float64Var(&radioSeconds, "radio-edit", 0, "电台版时长 (秒)，0 使用配置值")
}

func runMaster(cmd *cobra.Command, args []string) error {
	loaded, err := decoders.Load(args[0])
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", args[0], err)
	}
	g := genre
	if g == "" && loaded.Metadata.Genre != "" {
		g = loaded.Metadata.Genre
		logger.WithField("genre", g).Info("使用文件标签中的曲风")
	}
	base := strings.TrimSuffix(args[1], filepath.Ext(args[1]))

	m := cfg.Mastering
	if formats != "" {
		m.ExportFormats = parseFormats(formats)
	}
	if previewSeconds > 0 {
		m.PreviewSeconds = previewSeconds
	}
	if radioSeconds > 0 {
		m.RadioEditSeconds = radioSeconds
	}

	res, err := mastering.NewChain(m, logger).Master(loaded.Buffer, g)
	if err != nil {
		return err
	}

	exported, exportErr := mastering.NewExporter(encoders, logger).ExportRelease(res.Buffer, base, m)
	if exported == nil {
		return exportErr
	}

	result := struct {
		Mastering *mastering.Result       `json:"mastering"`
		Export    *mastering.ExportResult `json:"export"`
	}{res, exported}
	if err := output(cmd, result, func(p *report.Printer) {
		p.Outputs(fmt.Sprintf("母带完成: %s, %.1f LUFS, 真峰值 %.1f dBTP", res.Genre, res.LUFS, res.TruePeakDB), exported.Files)
		p.Failures(exported.Failures)
	}); err != nil {
		return err
	}
	return exportErr
}
