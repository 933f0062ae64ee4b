package types

// QualityMetrics 验证报告中的测量值
type QualityMetrics struct {
	Duration       float64 `json:"duration"`
	SampleRate     int     `json:"sampleRate"`
	Channels       int     `json:"channels"`
	BitDepth       int     `json:"bitDepth"`
	ClippingRatio  float64 `json:"clippingRatio"`
	SilenceRatio   float64 `json:"silenceRatio"`
	DynamicRangeDB float64 `json:"dynamicRangeDB"`
	DCOffset       float64 `json:"dcOffset"`
	FileSizeMB     float64 `json:"fileSizeMB"`
}

// ValidationReport 质量验证结果，构建后不再修改
type ValidationReport struct {
	IsValid      bool           `json:"isValid"`
	Errors       []string       `json:"errors"`
	Warnings     []string       `json:"warnings"`
	Metrics      QualityMetrics `json:"metrics"`
	QualityScore float64        `json:"qualityScore"`
	Grade        string         `json:"grade"`
}

// LoudnessMetrics 响度测量
type LoudnessMetrics struct {
	RMSDB         float64 `json:"rmsDB"`
	PeakDB        float64 `json:"peakDB"`
	TruePeakDB    float64 `json:"truePeakDB"`
	LUFS          float64 `json:"lufs"`
	CrestFactorDB float64 `json:"crestFactorDB"`
	LoudnessRange float64 `json:"loudnessRange"`
	HeadroomDB    float64 `json:"headroomDB"`
	IsClipping    bool    `json:"isClipping"`
}

// ClarityMetrics 清晰度测量
type ClarityMetrics struct {
	SpectralCentroid  float64 `json:"spectralCentroid"`
	SpectralRolloff   float64 `json:"spectralRolloff"`
	SpectralBandwidth float64 `json:"spectralBandwidth"`
	ZeroCrossingRate  float64 `json:"zeroCrossingRate"`
	SNRDB             float64 `json:"snrDB"`
	SpectralContrast  float64 `json:"spectralContrast"`
	ClarityScore      float64 `json:"clarityScore"`
	Grade             string  `json:"grade"`
}

// BandEnergy 单个频段的平均能量
type BandEnergy struct {
	Name     string  `json:"name"`
	LowHz    float64 `json:"lowHz"`
	HighHz   float64 `json:"highHz"`
	EnergyDB float64 `json:"energyDB"`
}

// SpectralMetrics 频谱分布测量
type SpectralMetrics struct {
	Bands            []BandEnergy `json:"bands"`
	SpectralFlatness float64      `json:"spectralFlatness"`
	IsTonal          bool         `json:"isTonal"`
	IsNoisy          bool         `json:"isNoisy"`
}

// PerformanceMetrics 文件与编码质量测量
type PerformanceMetrics struct {
	FileSizeMB      float64 `json:"fileSizeMB"`
	Duration        float64 `json:"duration"`
	SampleRate      int     `json:"sampleRate"`
	BitDepth        int     `json:"bitDepth"`
	Channels        int     `json:"channels"`
	BitrateKbps     float64 `json:"bitrateKbps"`
	HighFreqRatio   float64 `json:"highFreqRatio"`
	MaxFrequency    float64 `json:"maxFrequency"`
	CutoffHz        float64 `json:"cutoffHz,omitempty"`
	EncodingQuality string  `json:"encodingQuality"`
	Details         string  `json:"details"`
}

// ComprehensiveAnalysis 综合分析报告
type ComprehensiveAnalysis struct {
	Loudness     LoudnessMetrics    `json:"loudness"`
	Clarity      ClarityMetrics     `json:"clarity"`
	Spectral     SpectralMetrics    `json:"spectral"`
	Performance  PerformanceMetrics `json:"performance"`
	OverallScore float64            `json:"overallScore"`
	OverallGrade string             `json:"overallGrade"`
}

// EnhancementReport 增强流程执行记录
type EnhancementReport struct {
	Applied    []string `json:"applied"`
	Skipped    []string `json:"skipped"`
	SkipReason string   `json:"skipReason,omitempty"`
}

// AnalysisResult 批量分析中单个文件的结果
type AnalysisResult struct {
	FilePath string                 `json:"filePath"`
	Format   string                 `json:"format"`
	Metadata AudioMetadata          `json:"metadata"`
	Status   string                 `json:"status"` // "OK", "WARN", "ERROR"
	Analysis *ComprehensiveAnalysis `json:"analysis,omitempty"`
	Error    string                 `json:"error,omitempty"`
}
