package cmd

import (
	"audio-mastering-engine/internal/enhance"
	"audio-mastering-engine/internal/report"
	"audio-mastering-engine/internal/types"

	"github.com/spf13/cobra"
)

var (
	noNoise       bool
	noCompress    bool
	noNormalize   bool
	noiseStrength float64
	stereoWidth   float64
	targetLUFS    float64
	force         bool
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance <input> <output>",
	Short: "对音频执行降噪、压缩、立体声扩展和响度标准化",
	Long: `按固定顺序执行 降噪 → 压缩 → 立体声扩展 → 响度标准化，被关闭的阶段直接跳过。

输出格式由输出文件扩展名决定 (.wav, .flac, .opus)。`,
	Args: cobra.ExactArgs(2),
	RunE: runEnhance,
}

func init() {
	f := enhanceCmd.Flags()
	f.BoolVar(&noNoise, "no-noise", false, "跳过降噪")
	f.BoolVar(&noCompress, "no-compress", false, "跳过压缩")
	f.BoolVar(&noNormalize, "no-normalize", false, "跳过响度标准化")
	f.Float64Var(&noiseStrength, "noise-strength", 0.5, "降噪强度 [0,1]")
	f.Float64Var(&stereoWidth, "width", 1.0, "立体声宽度 [0,3]，不为 1 时启用立体声扩展")
	f.Float64Var(&targetLUFS, "target-lufs", -16, "目标响度 (LUFS)")
	f.BoolVar(&force, "force", false, "即使输入已完成母带处理也执行增强")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	buf, err := loadAudio(args[0])
	if err != nil {
		return err
	}

	req := cfg.Enhancement
	flags := cmd.Flags()
	if noNoise {
		req.ReduceNoise = false
	}
	if noCompress {
		req.Compress = false
	}
	if noNormalize {
		req.Normalize = false
	}
	if flags.Changed("noise-strength") {
		req.NoiseStrength = noiseStrength
	}
	if flags.Changed("width") {
		req.StereoWidth = stereoWidth
		req.WidenStereo = stereoWidth != 1
	}
	if flags.Changed("target-lufs") {
		req.TargetLUFS = targetLUFS
	}
	req.Force = req.Force || force

	out, er, err := enhance.NewPipeline(cfg.Mix.Safety, logger).Enhance(buf, req)
	if err != nil {
		return err
	}
	if err := writeAudio(args[1], out); err != nil {
		return err
	}

	result := struct {
		Output      string                   `json:"output"`
		Enhancement *types.EnhancementReport `json:"enhancement"`
	}{args[1], er}
	return output(cmd, result, func(p *report.Printer) {
		p.Enhancement(er)
		p.Outputs("输出文件", map[string]string{"enhanced": args[1]})
	})
}
