// Package mixer 把人声和伴奏混合为一轨，并把多个段落拼接成完整歌曲
package mixer

import (
	"fmt"
	"math"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/types"

	"github.com/sirupsen/logrus"
)

// MinHeadroomDB 求和前每轨至少预留的余量
const MinHeadroomDB = 6.0

// Mixer 人声/伴奏混音器
type Mixer struct {
	cfg types.MixConfig
	log logrus.FieldLogger
}

// NewMixer 创建混音器，余量低于 MinHeadroomDB 时按 MinHeadroomDB 处理
func NewMixer(cfg types.MixConfig, log logrus.FieldLogger) *Mixer {
	if cfg.HeadroomDB < MinHeadroomDB {
		cfg.HeadroomDB = MinHeadroomDB
	}
	return &Mixer{cfg: cfg, log: logging.OrDiscard(log)}
}

// Spec 用混音器配置中的增益和交叉淡化时长填充混音参数
func (m *Mixer) Spec(vocals, music *types.AudioBuffer) types.MixSpec {
	return types.MixSpec{
		Vocals:       vocals,
		Music:        music,
		VocalsGainDB: m.cfg.VocalsGainDB,
		MusicGainDB:  m.cfg.MusicGainDB,
		CrossfadeMs:  m.cfg.CrossfadeMs,
	}
}

// Mix 混合人声和伴奏，输出时长与人声相同
//
// 伴奏会被重采样到人声的采样率，较长时截断，较短时循环并在接缝处做等功率交叉淡化。
// 输入缓冲区不会被修改。
func (m *Mixer) Mix(spec types.MixSpec) (*types.AudioBuffer, error) {
	if spec.Vocals.IsEmpty() {
		return nil, fmt.Errorf("%w: 人声轨为空", types.ErrInvalidInput)
	}
	if spec.Music.IsEmpty() {
		return nil, fmt.Errorf("%w: 伴奏轨为空", types.ErrInvalidInput)
	}
	if err := checkSpec(spec); err != nil {
		return nil, err
	}

	rate := spec.Vocals.SampleRate
	channels := max(spec.Vocals.Channels, spec.Music.Channels)
	frames := spec.Vocals.Frames()
	xf := dsp.MsToFrames(spec.CrossfadeMs, rate)

	vocals := m.prepare(spec.Vocals, rate, channels, spec.VocalsGainDB)
	music := m.prepare(spec.Music, rate, channels, spec.MusicGainDB)
	musicFrames := len(music) / channels
	if musicFrames == 0 {
		return nil, fmt.Errorf("%w: 重采样后伴奏为空", types.ErrProcessingFailed)
	}
	if musicFrames < frames {
		music = loopTo(music, channels, frames, xf)
	}

	out := make([]float64, frames*channels)
	for i := range out {
		out[i] = vocals[i] + music[i]
	}

	// 混音边界对称淡入淡出
	fade := min(xf, frames/2)
	dsp.FadeIn(out, channels, fade)
	dsp.FadeOut(out, channels, fade)

	gainDB, err := dsp.ProtectClipping(out, m.cfg.Safety)
	if err != nil {
		return nil, fmt.Errorf("混音防削波失败: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"frames":      frames,
		"sample_rate": rate,
		"channels":    channels,
		"music_loops": musicFrames < frames,
		"safety_gain": gainDB,
	}).Debug("混音完成")

	res := spec.Vocals.WithSamples(out, channels)
	res.AlreadyMastered = false
	res.FileSize = 0
	return res, nil
}

// prepare 统一采样率和声道数，并施加余量与轨道增益
func (m *Mixer) prepare(buf *types.AudioBuffer, rate, channels int, gainDB float64) []float64 {
	conv := dsp.Resample(dsp.ConvertChannels(buf, channels), rate)
	dsp.Scale(conv.Samples, dsp.DBToLinear(gainDB-m.cfg.HeadroomDB))
	return conv.Samples
}

func checkSpec(spec types.MixSpec) error {
	for _, v := range []float64{spec.VocalsGainDB, spec.MusicGainDB, spec.CrossfadeMs} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: 混音参数包含无效数值", types.ErrInvalidInput)
		}
	}
	if spec.CrossfadeMs < 0 {
		return fmt.Errorf("%w: 交叉淡化时长不能为负", types.ErrInvalidInput)
	}
	if spec.Vocals.SampleRate <= 0 || spec.Music.SampleRate <= 0 {
		return fmt.Errorf("%w: 采样率无效", types.ErrInvalidInput)
	}
	return nil
}

// loopTo 循环交错数据直到 frames 帧，接缝处做等功率交叉淡化
func loopTo(src []float64, channels, frames, xf int) []float64 {
	srcFrames := len(src) / channels
	xf = min(xf, srcFrames/2)

	out := make([]float64, 0, (frames+srcFrames)*channels)
	out = append(out, src...)
	for len(out)/channels < frames {
		out = crossfadeAppend(out, src, channels, xf)
	}
	return out[:frames*channels]
}

// crossfadeAppend 把 next 接在 out 之后，重叠 xf 帧
func crossfadeAppend(out, next []float64, channels, xf int) []float64 {
	start := len(out)/channels - xf
	for i := 0; i < xf; i++ {
		fo, fi := dsp.EqualPower((float64(i) + 0.5) / float64(xf))
		for c := 0; c < channels; c++ {
			idx := (start+i)*channels + c
			out[idx] = out[idx]*fo + next[i*channels+c]*fi
		}
	}
	return append(out, next[xf*channels:]...)
}
