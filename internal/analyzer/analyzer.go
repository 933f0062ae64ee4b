// Package analyzer 提供响度、清晰度、频谱和编码质量分析，以及多文件批量分析
package analyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"audio-mastering-engine/internal/decoder"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/report"
	"audio-mastering-engine/internal/types"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// 批量分析结果状态
const (
	StatusOK    = "OK"
	StatusWarn  = "WARN"
	StatusError = "ERROR"
)

// BatchConfig 批量分析配置
type BatchConfig struct {
	Concurrency int
	JSONOutput  bool
	Quiet       bool    // 只输出需要关注的文件路径
	OnlyIssues  bool    // 只显示 WARN/ERROR 结果
	MinScore    float64 // 综合评分低于该值标记为 WARN
}

// BatchAnalyzer 多文件批量分析器
type BatchAnalyzer struct {
	config          BatchConfig
	decoderRegistry *decoder.DecoderRegistry
	out             io.Writer
	progress        io.Writer
	log             logrus.FieldLogger
}

// NewBatchAnalyzer 创建批量分析器
func NewBatchAnalyzer(config BatchConfig, log logrus.FieldLogger) *BatchAnalyzer {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &BatchAnalyzer{
		config:          config,
		decoderRegistry: decoder.NewDecoderRegistry(),
		out:             os.Stdout,
		progress:        os.Stderr,
		log:             logging.OrDiscard(log),
	}
}

// SetOutput 设置结果和进度条的输出位置
func (a *BatchAnalyzer) SetOutput(out, progress io.Writer) {
	a.out = out
	a.progress = progress
}

// AnalyzeFiles 并发分析多个音频文件，结果按输入顺序返回并输出
func (a *BatchAnalyzer) AnalyzeFiles(ctx context.Context, filePaths []string) ([]*types.AnalysisResult, error) {
	var bar *progressbar.ProgressBar
	if !a.config.Quiet && !a.config.JSONOutput && a.progress != nil {
		bar = progressbar.NewOptions(len(filePaths),
			progressbar.OptionSetWriter(a.progress),
			progressbar.OptionSetDescription("分析音频文件"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowIts(),
		)
	}

	type job struct {
		index int
		path  string
	}
	jobs := make(chan job, len(filePaths))
	results := make([]*types.AnalysisResult, len(filePaths))

	var wg sync.WaitGroup
	var barMu sync.Mutex
	for i := 0; i < a.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results[j.index] = &types.AnalysisResult{FilePath: j.path, Status: StatusError, Error: err.Error()}
					continue
				}
				results[j.index] = a.analyzeFile(j.path)
				if bar != nil {
					barMu.Lock()
					bar.Add(1)
					barMu.Unlock()
				}
			}
		}()
	}

	for i, p := range filePaths {
		jobs <- job{index: i, path: p}
	}
	close(jobs)
	wg.Wait()

	if bar != nil {
		bar.Finish()
		fmt.Fprintln(a.progress)
	}

	for _, r := range results {
		if err := a.outputResult(r); err != nil {
			return results, err
		}
	}

	if !a.config.Quiet && !a.config.JSONOutput {
		report.NewPrinter(a.out).Summary(results)
	}

	return results, ctx.Err()
}

// analyzeFile 解码并分析单个音频文件
func (a *BatchAnalyzer) analyzeFile(filePath string) *types.AnalysisResult {
	result := &types.AnalysisResult{
		FilePath: filePath,
		Status:   StatusError,
	}

	loaded, err := a.decoderRegistry.Load(filePath)
	if err != nil {
		result.Error = fmt.Sprintf("解码失败: %v", err)
		a.log.WithField("file", filePath).WithError(err).Warn("解码失败")
		return result
	}
	result.Format = loaded.Format
	result.Metadata = loaded.Metadata

	analysis, err := Analyze(loaded.Buffer)
	if err != nil {
		result.Error = err.Error()
		a.log.WithField("file", filePath).WithError(err).Warn("分析失败")
		return result
	}
	result.Analysis = analysis
	result.Status = a.classify(analysis)

	a.log.WithFields(logrus.Fields{
		"file":  filePath,
		"score": analysis.OverallScore,
		"grade": analysis.OverallGrade,
	}).Debug("文件分析完成")
	return result
}

// classify 根据分析结果判定状态
func (a *BatchAnalyzer) classify(analysis *types.ComprehensiveAnalysis) string {
	switch {
	case analysis.Loudness.IsClipping:
		return StatusWarn
	case analysis.Performance.EncodingQuality == QualityPoor:
		return StatusWarn
	case analysis.OverallScore < a.config.MinScore:
		return StatusWarn
	default:
		return StatusOK
	}
}

// outputResult 输出单个分析结果
func (a *BatchAnalyzer) outputResult(result *types.AnalysisResult) error {
	if a.config.OnlyIssues && result.Status == StatusOK {
		return nil
	}

	// 静默模式只输出需要关注的文件路径
	if a.config.Quiet {
		if result.Status != StatusOK {
			fmt.Fprintln(a.out, result.FilePath)
		}
		return nil
	}

	if a.config.JSONOutput {
		return report.WriteJSON(a.out, result, false)
	}

	report.NewPrinter(a.out).AnalysisResult(result)
	return nil
}
