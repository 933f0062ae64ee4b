package analyzer

import (
	"fmt"

	"audio-mastering-engine/internal/types"
	"audio-mastering-engine/internal/validator"
)

// 综合评分权重
const (
	weightLoudness    = 0.3
	weightClarity     = 0.3
	weightSpectral    = 0.2
	weightPerformance = 0.2
)

// Analyze 运行全部四项分析并给出综合评分
func Analyze(buf *types.AudioBuffer) (*types.ComprehensiveAnalysis, error) {
	loudness, err := AnalyzeLoudness(buf)
	if err != nil {
		return nil, fmt.Errorf("响度分析失败: %w", err)
	}
	clarity, err := AnalyzeClarity(buf)
	if err != nil {
		return nil, fmt.Errorf("清晰度分析失败: %w", err)
	}
	spectral, err := AnalyzeSpectral(buf)
	if err != nil {
		return nil, fmt.Errorf("频谱分析失败: %w", err)
	}
	performance, err := AnalyzePerformance(buf)
	if err != nil {
		return nil, fmt.Errorf("性能分析失败: %w", err)
	}

	score := weightLoudness*loudnessScore(loudness) +
		weightClarity*clarity.ClarityScore +
		weightSpectral*spectralScore(spectral) +
		weightPerformance*performanceScore(performance)

	return &types.ComprehensiveAnalysis{
		Loudness:     loudness,
		Clarity:      clarity,
		Spectral:     spectral,
		Performance:  performance,
		OverallScore: score,
		OverallGrade: validator.Grade(score),
	}, nil
}
