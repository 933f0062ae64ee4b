package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"audio-mastering-engine/internal/config"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/report"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	logLevel    string
	logJSON     bool
	jsonOutput  bool
	concurrency int
	version     = "1.0.0"

	// 由 PersistentPreRunE 初始化
	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "audio-mastering-engine",
	Short: "离线音频母带处理与增强引擎",
	Long: `Audio Mastering Engine 是一个离线的音频处理CLI工具。

支持质量验证、降噪/压缩/立体声扩展/响度标准化增强、多维度分析、
人声与伴奏混音、段落拼接、按曲风的母带处理，以及 WAV/FLAC/Opus 多格式导出。
当前支持读取 WAV, FLAC 格式。`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute 执行根命令，收到中断信号时取消正在进行的任务
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		report.PrintError(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML 配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "以JSON格式输出日志")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "以JSON格式输出结果")
	rootCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "j", runtime.NumCPU(), "并发处理文件数量")

	rootCmd.SetVersionTemplate("audio-mastering-engine version {{.Version}}\n")
	rootCmd.Version = version

	rootCmd.AddCommand(
		validateCmd,
		analyzeCmd,
		enhanceCmd,
		mixCmd,
		assembleCmd,
		masterCmd,
		produceCmd,
	)
}

// setup 加载配置并创建日志器，命令行参数优先于配置文件
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("log-json") {
		loaded.Logging.JSON = logJSON
	}
	if cmd.Flags().Changed("concurrency") {
		if concurrency < 1 {
			return fmt.Errorf("并发数必须大于 0")
		}
		loaded.Concurrency = concurrency
	}
	loaded.Logging.Output = os.Stderr

	l, err := logging.New(loaded.Logging)
	if err != nil {
		return err
	}
	cfg, logger = loaded, l
	return nil
}
