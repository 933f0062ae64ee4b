// Package config 提供引擎的默认配置和 TOML 配置文件加载
package config

import (
	"fmt"
	"strings"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/types"

	"github.com/BurntSushi/toml"
)

// minHeadroomDB 混音时每轨最少预留的余量
const minHeadroomDB = 6.0

// Config 引擎完整配置
type Config struct {
	Validation  types.ValidationConstraints `toml:"validation" json:"validation"`
	Enhancement types.EnhancementRequest    `toml:"enhancement" json:"enhancement"`
	Mix         types.MixConfig             `toml:"mix" json:"mix"`
	Mastering   types.MasteringConfig       `toml:"mastering" json:"mastering"`
	Logging     logging.Options             `toml:"logging" json:"logging"`
	Concurrency int                         `toml:"concurrency" json:"concurrency"`
}

// DefaultGenres 默认曲风母带参数
func DefaultGenres() map[string]types.GenreProfile {
	return map[string]types.GenreProfile{
		"default":    {TargetLUFS: -14, LowShelfDB: 1, HighShelfDB: 1, ThresholdDB: -18, Ratio: 2, ExciterDrive: 2, ExciterMix: 0.1, StereoWidth: 1.1},
		"pop":        {TargetLUFS: -14, LowShelfDB: 1.5, HighShelfDB: 2, ThresholdDB: -18, Ratio: 2.5, ExciterDrive: 2.5, ExciterMix: 0.15, StereoWidth: 1.2},
		"rock":       {TargetLUFS: -12, LowShelfDB: 2, HighShelfDB: 1.5, ThresholdDB: -16, Ratio: 3, ExciterDrive: 3, ExciterMix: 0.15, StereoWidth: 1.15},
		"electronic": {TargetLUFS: -11, LowShelfDB: 3, HighShelfDB: 2, ThresholdDB: -16, Ratio: 3, ExciterDrive: 3, ExciterMix: 0.12, StereoWidth: 1.3},
		"hiphop":     {TargetLUFS: -12, LowShelfDB: 3, HighShelfDB: 1, ThresholdDB: -16, Ratio: 3, ExciterDrive: 2, ExciterMix: 0.1, StereoWidth: 1.05},
		"metal":      {TargetLUFS: -10, LowShelfDB: 1.5, HighShelfDB: 2, ThresholdDB: -14, Ratio: 4, ExciterDrive: 3.5, ExciterMix: 0.15, StereoWidth: 1.2},
		"jazz":       {TargetLUFS: -18, LowShelfDB: 0.5, HighShelfDB: 0.5, ThresholdDB: -22, Ratio: 1.5, ExciterDrive: 1.5, ExciterMix: 0.05, StereoWidth: 1.05},
		"classical":  {TargetLUFS: -20, LowShelfDB: 0, HighShelfDB: 0.5, ThresholdDB: -24, Ratio: 1.2, ExciterDrive: 1.2, ExciterMix: 0.03, StereoWidth: 1.0},
	}
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Validation: types.ValidationConstraints{
			MinDuration:        5,
			MaxDuration:        600,
			MinSampleRate:      16000,
			MaxFileSizeMB:      200,
			ClippingErrorRatio: 0.05,
			SilenceWarnRatio:   0.30,
			SilenceFloorDB:     -50,
			MinDynamicRangeDB:  6,
			MaxDynamicRangeDB:  30,
			MaxDCOffset:        0.01,
		},
		Enhancement: types.EnhancementRequest{
			ReduceNoise:   true,
			Compress:      true,
			WidenStereo:   false,
			Normalize:     true,
			NoiseStrength: 0.5,
			ThresholdDB:   -20,
			Ratio:         3,
			AttackMs:      10,
			ReleaseMs:     100,
			StereoWidth:   1.0,
			TargetLUFS:    -16,
		},
		Mix: types.MixConfig{
			HeadroomDB:   minHeadroomDB,
			VocalsGainDB: 0,
			MusicGainDB:  -3,
			CrossfadeMs:  50,
			Safety:       dsp.DefaultSafety(),
		},
		Mastering: types.MasteringConfig{
			Genres:           DefaultGenres(),
			DefaultGenre:     "default",
			CeilingDB:        -1.0,
			LimiterLookahead: 5,
			LimiterRelease:   80,
			PreviewSeconds:   30,
			RadioEditSeconds: 180,
			FadeOutSeconds:   3,
			ExportFormats:    []string{"wav", "flac", "opus"},
		},
		Logging:     logging.Options{Level: "warn"},
		Concurrency: 4,
	}
}

// Load 在默认配置之上解码 TOML 文件
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析配置文件失败: %v", types.ErrInvalidInput, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: 配置文件包含未知字段: %s", types.ErrInvalidInput, strings.Join(keys, ", "))
	}

	// 文件中只覆盖部分曲风时补全默认曲风
	for name, profile := range DefaultGenres() {
		if _, ok := cfg.Mastering.Genres[name]; !ok {
			cfg.Mastering.Genres[name] = profile
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	var problems []string

	if c.Validation.MinDuration < 0 || c.Validation.MaxDuration < c.Validation.MinDuration {
		problems = append(problems, "validation 时长范围无效")
	}
	if c.Enhancement.NoiseStrength < 0 || c.Enhancement.NoiseStrength > 1 {
		problems = append(problems, "enhancement.noise_strength 必须在 [0,1]")
	}
	if c.Enhancement.Ratio < 1 {
		problems = append(problems, "enhancement.ratio 不能小于 1")
	}
	if c.Enhancement.StereoWidth < 0 || c.Enhancement.StereoWidth > 3 {
		problems = append(problems, "enhancement.stereo_width 必须在 [0,3]")
	}
	if c.Mix.HeadroomDB < minHeadroomDB {
		problems = append(problems, fmt.Sprintf("mix.headroom_db 不能小于 %.0f dB", minHeadroomDB))
	}
	if c.Mastering.CeilingDB >= 0 {
		problems = append(problems, "mastering.ceiling_db 必须小于 0")
	}
	if _, ok := c.Mastering.Genres[c.Mastering.DefaultGenre]; !ok {
		problems = append(problems, fmt.Sprintf("mastering.default_genre %q 未定义", c.Mastering.DefaultGenre))
	}
	if c.Concurrency < 1 {
		problems = append(problems, "concurrency 至少为 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
