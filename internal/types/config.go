package types

// ValidationConstraints 质量验证阈值
type ValidationConstraints struct {
	MinDuration   float64 `toml:"min_duration" json:"minDuration"`
	MaxDuration   float64 `toml:"max_duration" json:"maxDuration"`
	MinSampleRate int     `toml:"min_sample_rate" json:"minSampleRate"`
	MaxFileSizeMB float64 `toml:"max_file_size_mb" json:"maxFileSizeMB"` // 0 表示不限制

	// ClippingErrorRatio 削波比例超过该值视为错误，否则为警告
	ClippingErrorRatio float64 `toml:"clipping_error_ratio" json:"clippingErrorRatio"`
	SilenceWarnRatio   float64 `toml:"silence_warn_ratio" json:"silenceWarnRatio"`
	SilenceFloorDB     float64 `toml:"silence_floor_db" json:"silenceFloorDB"`
	MinDynamicRangeDB  float64 `toml:"min_dynamic_range_db" json:"minDynamicRangeDB"`
	MaxDynamicRangeDB  float64 `toml:"max_dynamic_range_db" json:"maxDynamicRangeDB"`
	MaxDCOffset        float64 `toml:"max_dc_offset" json:"maxDCOffset"`
}

// EnhancementRequest 增强流程的阶段开关和参数
type EnhancementRequest struct {
	ReduceNoise bool `toml:"reduce_noise" json:"reduceNoise"`
	Compress    bool `toml:"compress" json:"compress"`
	WidenStereo bool `toml:"widen_stereo" json:"widenStereo"`
	Normalize   bool `toml:"normalize" json:"normalize"`

	NoiseStrength float64 `toml:"noise_strength" json:"noiseStrength"` // [0,1]
	ThresholdDB   float64 `toml:"threshold_db" json:"thresholdDB"`
	Ratio         float64 `toml:"ratio" json:"ratio"`
	AttackMs      float64 `toml:"attack_ms" json:"attackMs"`
	ReleaseMs     float64 `toml:"release_ms" json:"releaseMs"`
	StereoWidth   float64 `toml:"stereo_width" json:"stereoWidth"` // [0,3]
	TargetLUFS    float64 `toml:"target_lufs" json:"targetLUFS"`

	// Force 即使缓冲区标记为已母带处理也执行增强
	Force bool `toml:"force" json:"force"`
}

// SafetyConfig 防削波处理参数
type SafetyConfig struct {
	TriggerPeak float64 `toml:"trigger_peak" json:"triggerPeak"` // 峰值达到该值时触发 (线性)
	StepDB      float64 `toml:"step_db" json:"stepDB"`           // 每次衰减量
	HeadroomDB  float64 `toml:"headroom_db" json:"headroomDB"`   // 最终保留的余量
}

// MixConfig 混音器配置
type MixConfig struct {
	HeadroomDB   float64      `toml:"headroom_db" json:"headroomDB"` // 每轨预留余量，最少 6 dB
	VocalsGainDB float64      `toml:"vocals_gain_db" json:"vocalsGainDB"`
	MusicGainDB  float64      `toml:"music_gain_db" json:"musicGainDB"`
	CrossfadeMs  float64      `toml:"crossfade_ms" json:"crossfadeMs"`
	Safety       SafetyConfig `toml:"safety" json:"safety"`
}

// GenreProfile 某一曲风的母带参数
type GenreProfile struct {
	TargetLUFS   float64 `toml:"target_lufs" json:"targetLUFS"`
	LowShelfDB   float64 `toml:"low_shelf_db" json:"lowShelfDB"`
	HighShelfDB  float64 `toml:"high_shelf_db" json:"highShelfDB"`
	ThresholdDB  float64 `toml:"threshold_db" json:"thresholdDB"`
	Ratio        float64 `toml:"ratio" json:"ratio"`
	ExciterDrive float64 `toml:"exciter_drive" json:"exciterDrive"`
	ExciterMix   float64 `toml:"exciter_mix" json:"exciterMix"`
	StereoWidth  float64 `toml:"stereo_width" json:"stereoWidth"`
}

// MasteringConfig 母带处理链配置
type MasteringConfig struct {
	Genres           map[string]GenreProfile `toml:"genres" json:"genres"`
	DefaultGenre     string                  `toml:"default_genre" json:"defaultGenre"`
	CeilingDB        float64                 `toml:"ceiling_db" json:"ceilingDB"`
	LimiterLookahead float64                 `toml:"limiter_lookahead_ms" json:"limiterLookaheadMs"`
	LimiterRelease   float64                 `toml:"limiter_release_ms" json:"limiterReleaseMs"`
	PreviewSeconds   float64                 `toml:"preview_seconds" json:"previewSeconds"`
	RadioEditSeconds float64                 `toml:"radio_edit_seconds" json:"radioEditSeconds"`
	FadeOutSeconds   float64                 `toml:"fade_out_seconds" json:"fadeOutSeconds"`
	ExportFormats    []string                `toml:"export_formats" json:"exportFormats"`
}
