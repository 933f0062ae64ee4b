package cmd

import (
	"fmt"
	"os"

	"audio-mastering-engine/internal/analyzer"
	"audio-mastering-engine/internal/report"
	"audio-mastering-engine/internal/types"
	"audio-mastering-engine/internal/validator"

	"github.com/spf13/cobra"
)

var (
	quiet      bool
	onlyIssues bool
	minScore   float64
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "按配置的阈值验证音频质量",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "分析音频文件或目录的响度、清晰度、频谱和编码质量",
	Long: `对单个文件或目录下所有 WAV/FLAC 文件做综合分析。

通过频谱分析检测高频截断，判断文件是否由有损格式转换而来。`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "静默模式，仅输出需要关注的文件路径")
	analyzeCmd.Flags().BoolVar(&onlyIssues, "only-issues", false, "只显示 WARN/ERROR 文件的分析报告")
	analyzeCmd.Flags().Float64Var(&minScore, "min-score", 60, "综合评分低于该值时标记为 WARN")
}

func runValidate(cmd *cobra.Command, args []string) error {
	v := validator.NewValidator(logger)
	reports := make(map[string]*types.ValidationReport, len(args))
	failed := 0
	for _, path := range args {
		buf, err := loadAudio(path)
		if err != nil {
			return err
		}
		r := v.Validate(buf, cfg.Validation)
		reports[path] = r
		if !r.IsValid {
			failed++
		}
		if !jsonOutput {
			report.NewPrinter(cmd.OutOrStdout()).Validation(path, r)
		}
	}
	if jsonOutput {
		if err := report.WriteJSON(cmd.OutOrStdout(), reports, true); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d 个文件未通过验证", types.ErrValidationFailed, failed)
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	targetPath := args[0]

	if _, err := os.Stat(targetPath); os.IsNotExist(err) {
		return fmt.Errorf("路径不存在: %s", targetPath)
	}

	files, err := collectAudioFiles(targetPath)
	if err != nil {
		return fmt.Errorf("收集音频文件失败: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "未找到支持的音频文件")
		return nil
	}

	batch := analyzer.NewBatchAnalyzer(analyzer.BatchConfig{
		Concurrency: cfg.Concurrency,
		JSONOutput:  jsonOutput,
		Quiet:       quiet,
		OnlyIssues:  onlyIssues,
		MinScore:    minScore,
	}, logger)
	batch.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

	_, err = batch.AnalyzeFiles(cmd.Context(), files)
	return err
}
