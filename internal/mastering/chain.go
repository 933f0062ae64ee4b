// Package mastering 实现按曲风配置的母带处理链、预览/电台版剪辑和多格式导出
package mastering

import (
	"fmt"
	"math"
	"strings"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/enhance"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/types"

	"github.com/sirupsen/logrus"
)

// State 母带处理的阶段状态
type State int

const (
	StateRaw State = iota
	StateEQd
	StateCompressed
	StateHarmonicEnhanced
	StateStereoEnhanced
	StateLoudnessNormalized
	StatePeakLimited
	StateFinal
)

var stateNames = [...]string{
	StateRaw:                "raw",
	StateEQd:                "eq",
	StateCompressed:         "compressed",
	StateHarmonicEnhanced:   "harmonic_enhanced",
	StateStereoEnhanced:     "stereo_enhanced",
	StateLoudnessNormalized: "loudness_normalized",
	StatePeakLimited:        "peak_limited",
	StateFinal:              "final",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText 以名称序列化状态
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// 均衡与激励器的固定频点
const (
	rumbleCutHz     = 30.0
	lowShelfHz      = 100.0
	highShelfHz     = 10000.0
	exciterHz       = 3000.0
	shelfQ          = 0.707
	masterAttackMs  = 10.0
	masterReleaseMs = 150.0
)

// Result 母带处理结果
type Result struct {
	Buffer     *types.AudioBuffer `json:"-"`
	Genre      string             `json:"genre"`
	Profile    types.GenreProfile `json:"profile"`
	TargetLUFS float64            `json:"targetLUFS"`
	LUFS       float64            `json:"lufs"`
	TruePeakDB float64            `json:"truePeakDB"`
	States     []State            `json:"states"`
}

// Chain 母带处理链
type Chain struct {
	cfg types.MasteringConfig
	log logrus.FieldLogger
}

// NewChain 创建母带处理链
func NewChain(cfg types.MasteringConfig, log logrus.FieldLogger) *Chain {
	return &Chain{cfg: cfg, log: logging.OrDiscard(log)}
}

// Profile 查找曲风参数，未知曲风使用默认曲风
func (c *Chain) Profile(genre string) (string, types.GenreProfile) {
	name := strings.ToLower(strings.TrimSpace(genre))
	if p, ok := c.cfg.Genres[name]; ok {
		return name, p
	}
	if name != "" {
		c.log.WithField("genre", genre).Warn("未知曲风，使用默认母带参数")
	}
	return c.cfg.DefaultGenre, c.cfg.Genres[c.cfg.DefaultGenre]
}

type stage struct {
	state State
	run   func(*types.AudioBuffer) (*types.AudioBuffer, error)
}

// Master 依次执行 均衡 → 压缩 → 谐波激励 → 立体声增强 → 响度标准化 → 峰值限制
//
// 任一阶段失败立即中止，返回 ErrProcessingFailed。输入缓冲区不会被修改。
func (c *Chain) Master(buf *types.AudioBuffer, genre string) (*Result, error) {
	if buf.IsEmpty() {
		return nil, fmt.Errorf("%w: 缓冲区为空", types.ErrInvalidInput)
	}
	if c.cfg.CeilingDB >= 0 {
		return nil, fmt.Errorf("%w: 峰值上限 %.1f dBFS 必须小于 0", types.ErrInvalidInput, c.cfg.CeilingDB)
	}

	name, profile := c.Profile(genre)
	stages := []stage{
		{StateEQd, func(b *types.AudioBuffer) (*types.AudioBuffer, error) { return equalize(b, profile), nil }},
		{StateCompressed, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			return enhance.Compress(b, enhance.CompressorParams{
				ThresholdDB: profile.ThresholdDB,
				Ratio:       math.Max(profile.Ratio, 1),
				AttackMs:    masterAttackMs,
				ReleaseMs:   masterReleaseMs,
			})
		}},
		{StateHarmonicEnhanced, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			return excite(b, profile.ExciterDrive, profile.ExciterMix), nil
		}},
		{StateStereoEnhanced, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			// 单声道保持单声道
			if b.Channels != 2 || profile.StereoWidth == 1 {
				return b.Clone(), nil
			}
			return enhance.Widen(b, profile.StereoWidth)
		}},
		{StateLoudnessNormalized, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			gainDB, err := enhance.LoudnessGain(b, profile.TargetLUFS)
			if err != nil {
				return nil, err
			}
			out := b.Clone()
			dsp.Scale(out.Samples, dsp.DBToLinear(gainDB))
			return out, nil
		}},
		{StatePeakLimited, func(b *types.AudioBuffer) (*types.AudioBuffer, error) {
			return c.limiter().Limit(b), nil
		}},
	}

	states := []State{StateRaw}
	current := buf
	for _, s := range stages {
		next, err := s.run(current)
		if err != nil {
			return nil, fmt.Errorf("%w: 母带阶段 %s 失败: %w", types.ErrProcessingFailed, s.state, err)
		}
		if !dsp.Finite(next.Samples) {
			return nil, fmt.Errorf("%w: 母带阶段 %s 产生无效数值", types.ErrProcessingFailed, s.state)
		}
		current = next
		states = append(states, s.state)
		c.log.WithFields(logrus.Fields{"stage": s.state.String(), "genre": name}).Debug("母带阶段完成")
	}

	final := current.Clone()
	final.AlreadyMastered = true
	final.FileSize = 0
	states = append(states, StateFinal)

	res := &Result{
		Buffer:     final,
		Genre:      name,
		Profile:    profile,
		TargetLUFS: profile.TargetLUFS,
		LUFS:       dsp.IntegratedLoudness(final),
		TruePeakDB: dsp.LinearToDB(dsp.TruePeak(final.Samples, final.Channels)),
		States:     states,
	}
	c.log.WithFields(logrus.Fields{
		"genre":       name,
		"target_lufs": res.TargetLUFS,
		"lufs":        res.LUFS,
		"true_peak":   res.TruePeakDB,
	}).Info("母带处理完成")
	return res, nil
}

func (c *Chain) limiter() *Limiter {
	return &Limiter{
		CeilingDB:   c.cfg.CeilingDB,
		LookaheadMs: c.cfg.LimiterLookahead,
		ReleaseMs:   c.cfg.LimiterRelease,
	}
}

// equalize 切除超低频并按曲风做高低架
func equalize(buf *types.AudioBuffer, p types.GenreProfile) *types.AudioBuffer {
	out := buf.Clone()
	sr := float64(buf.SampleRate)
	dsp.HighPass(sr, rumbleCutHz, shelfQ).ProcessInterleaved(out.Samples, out.Channels)
	if p.LowShelfDB != 0 {
		dsp.LowShelf(sr, lowShelfHz, shelfQ, p.LowShelfDB).ProcessInterleaved(out.Samples, out.Channels)
	}
	if p.HighShelfDB != 0 {
		dsp.HighShelf(sr, highShelfHz, shelfQ, p.HighShelfDB).ProcessInterleaved(out.Samples, out.Channels)
	}
	return out
}

// excite 对 3 kHz 以上成分做 tanh 饱和并按 mix 混回原信号
func excite(buf *types.AudioBuffer, drive, mix float64) *types.AudioBuffer {
	out := buf.Clone()
	if drive <= 0 || mix <= 0 {
		return out
	}
	high := make([]float64, len(buf.Samples))
	copy(high, buf.Samples)
	dsp.HighPass(float64(buf.SampleRate), exciterHz, shelfQ).ProcessInterleaved(high, buf.Channels)

	norm := math.Tanh(drive)
	for i, h := range high {
		out.Samples[i] += mix * math.Tanh(drive*h) / norm
	}
	return out
}
