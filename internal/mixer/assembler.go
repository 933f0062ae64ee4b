package mixer

import (
	"fmt"
	"math"
	"sort"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/types"

	"github.com/sirupsen/logrus"
)

// defaultSampleRate 所有段落都没有音频时使用的采样率
const defaultSampleRate = 44100

// Assembler 把结构化歌曲的段落渲染并拼接为一轨
type Assembler struct {
	mixer *Mixer
	log   logrus.FieldLogger
}

// NewAssembler 创建段落拼接器
func NewAssembler(mixer *Mixer, log logrus.FieldLogger) *Assembler {
	return &Assembler{mixer: mixer, log: logging.OrDiscard(log)}
}

// Assemble 按 Order 排序段落，逐段渲染到各自时长后用交叉淡化拼接
//
// 总帧数为各段帧数之和减去 (段数-1) 个交叉淡化长度。
func (a *Assembler) Assemble(song types.StructuredSong) (*types.AudioBuffer, error) {
	if len(song.Sections) == 0 {
		return nil, fmt.Errorf("%w: 歌曲没有任何段落", types.ErrInvalidInput)
	}
	if math.IsNaN(song.CrossfadeMs) || song.CrossfadeMs < 0 {
		return nil, fmt.Errorf("%w: 交叉淡化时长无效", types.ErrInvalidInput)
	}

	sections := make([]types.SongSection, len(song.Sections))
	copy(sections, song.Sections)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })

	rate, channels := outputFormat(sections)
	xf := dsp.MsToFrames(song.CrossfadeMs, rate)

	rendered := make([][]float64, len(sections))
	for i, s := range sections {
		if math.IsNaN(s.DurationSeconds) || s.DurationSeconds <= 0 {
			return nil, fmt.Errorf("%w: 段落 %d (%s) 时长无效", types.ErrInvalidInput, s.Order, s.Type)
		}
		samples, err := a.renderSection(s, rate, channels, xf)
		if err != nil {
			return nil, fmt.Errorf("渲染段落 %d (%s) 失败: %w", s.Order, s.Type, err)
		}
		if len(sections) > 1 && len(samples)/channels < xf {
			return nil, fmt.Errorf("%w: 段落 %d 短于交叉淡化时长", types.ErrInvalidInput, s.Order)
		}
		rendered[i] = samples
	}

	out := rendered[0]
	for _, next := range rendered[1:] {
		out = crossfadeAppend(out, next, channels, xf)
	}

	if _, err := dsp.ProtectClipping(out, a.mixer.cfg.Safety); err != nil {
		return nil, fmt.Errorf("拼接防削波失败: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"sections":    len(sections),
		"frames":      len(out) / channels,
		"sample_rate": rate,
	}).Debug("段落拼接完成")

	buf := types.NewAudioBuffer(0, rate, channels)
	buf.Samples = out
	return buf, nil
}

// outputFormat 取第一个有音频的段落的采样率，声道数取所有段落的最大值
func outputFormat(sections []types.SongSection) (int, int) {
	rate, channels := 0, 1
	for _, s := range sections {
		for _, b := range []*types.AudioBuffer{s.Vocals, s.Music} {
			if b.IsEmpty() {
				continue
			}
			if rate == 0 {
				rate = b.SampleRate
			}
			channels = max(channels, b.Channels)
		}
	}
	if rate == 0 {
		rate = defaultSampleRate
	}
	return rate, channels
}

// renderSection 把段落渲染为恰好 DurationSeconds 长的交错数据
func (a *Assembler) renderSection(s types.SongSection, rate, channels, xf int) ([]float64, error) {
	frames := int(math.Round(s.DurationSeconds * float64(rate)))
	hasVocals, hasMusic := !s.Vocals.IsEmpty(), !s.Music.IsEmpty()

	var samples []float64
	switch {
	case hasVocals && hasMusic:
		spec := a.mixer.Spec(s.Vocals, s.Music)
		mixed, err := a.mixer.Mix(spec)
		if err != nil {
			return nil, err
		}
		// 混音结果已包含余量，这里只统一格式
		samples = a.mixer.prepare(mixed, rate, channels, a.mixer.cfg.HeadroomDB)
	case hasVocals:
		samples = a.mixer.prepare(s.Vocals, rate, channels, a.mixer.cfg.VocalsGainDB)
	case hasMusic:
		samples = a.mixer.prepare(s.Music, rate, channels, a.mixer.cfg.MusicGainDB)
		if n := len(samples) / channels; n > 0 && n < frames {
			samples = loopTo(samples, channels, frames, xf)
		}
	}

	out := make([]float64, frames*channels)
	copy(out, samples)
	return out, nil
}
