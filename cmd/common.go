package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audio-mastering-engine/internal/decoder"
	"audio-mastering-engine/internal/encoder"
	"audio-mastering-engine/internal/report"
	"audio-mastering-engine/internal/source"
	"audio-mastering-engine/internal/types"

	"github.com/spf13/cobra"
)

var (
	decoders = decoder.NewDecoderRegistry()
	encoders = encoder.NewEncoderRegistry()
)

// loadAudio 解码音频文件
func loadAudio(path string) (*types.AudioBuffer, error) {
	buf, err := decoders.LoadBuffer(path)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	return buf, nil
}

// resolveAudio 直接读取存在的文件，否则在音源目录中按顺序查找
func resolveAudio(ctx context.Context, ref string, dirs []string) (*types.AudioBuffer, error) {
	if _, err := os.Stat(ref); err == nil || len(dirs) == 0 {
		return loadAudio(ref)
	}
	providers := make([]source.Provider, 0, len(dirs))
	for _, d := range dirs {
		providers = append(providers, source.NewFileProvider(d))
	}
	buf, name, err := source.NewChain(logger, providers...).Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	logger.WithField("provider", name).WithField("key", ref).Info("已从音源目录获取音频")
	return buf, nil
}

// writeAudio 按输出路径扩展名选择编码器并原子写入
func writeAudio(path string, buf *types.AudioBuffer) error {
	enc, err := encoders.ForPath(path)
	if err != nil {
		return err
	}
	return encoder.WriteAtomic(path, enc, buf)
}

// collectAudioFiles 收集路径下所有可解码的音频文件
func collectAudioFiles(path string) ([]string, error) {
	var files []string
	err := filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if decoders.Supports(filePath) {
			files = append(files, filePath)
		}
		return nil
	})
	return files, err
}

// output 按 --json 选择 JSON 或带样式的文本输出
func output(cmd *cobra.Command, v any, styled func(*report.Printer)) error {
	if jsonOutput {
		return report.WriteJSON(cmd.OutOrStdout(), v, true)
	}
	styled(report.NewPrinter(cmd.OutOrStdout()))
	return nil
}

// parseFormats 解析逗号分隔的格式列表
func parseFormats(s string) []string {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, strings.ToLower(f))
		}
	}
	return formats
}
