package types

import "time"

// AudioBuffer 内存中的PCM音频缓冲区（交错存储）
type AudioBuffer struct {
	Samples    []float64 // 交错采样，归一化到 [-1.0, 1.0]
	SampleRate int       // 采样率 (Hz)
	Channels   int       // 声道数 (1 或 2)
	BitDepth   int       // 源文件位深度，未知时为 0
	FileSize   int64     // 源文件大小（字节），未知时为 0

	// AlreadyMastered 上游已经完成母带处理，增强流程默认跳过
	AlreadyMastered bool
}

// NewAudioBuffer 创建指定帧数的静音缓冲区
func NewAudioBuffer(frames, sampleRate, channels int) *AudioBuffer {
	return &AudioBuffer{
		Samples:    make([]float64, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// FromChannels 由分离的声道数据构建交错缓冲区
func FromChannels(chans [][]float64, sampleRate int) *AudioBuffer {
	if len(chans) == 0 {
		return &AudioBuffer{SampleRate: sampleRate, Channels: 1}
	}
	frames := len(chans[0])
	for _, c := range chans[1:] {
		if len(c) < frames {
			frames = len(c)
		}
	}
	buf := NewAudioBuffer(frames, sampleRate, len(chans))
	for ch, data := range chans {
		for i := 0; i < frames; i++ {
			buf.Samples[i*len(chans)+ch] = data[i]
		}
	}
	return buf
}

// Frames 返回每声道的采样帧数
func (b *AudioBuffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration 返回时长（秒）
func (b *AudioBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// DurationTime 以 time.Duration 返回时长
func (b *AudioBuffer) DurationTime() time.Duration {
	return time.Duration(b.Duration() * float64(time.Second))
}

// IsEmpty 缓冲区是否不含任何采样
func (b *AudioBuffer) IsEmpty() bool {
	return b == nil || len(b.Samples) == 0
}

// Clone 深拷贝缓冲区
func (b *AudioBuffer) Clone() *AudioBuffer {
	c := *b
	c.Samples = make([]float64, len(b.Samples))
	copy(c.Samples, b.Samples)
	return &c
}

// WithSamples 复制元数据并使用新的采样数据
func (b *AudioBuffer) WithSamples(samples []float64, channels int) *AudioBuffer {
	c := *b
	c.Samples = samples
	c.Channels = channels
	return &c
}

// Channel 提取单个声道的数据副本
func (b *AudioBuffer) Channel(ch int) []float64 {
	frames := b.Frames()
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		out[i] = b.Samples[i*b.Channels+ch]
	}
	return out
}

// Split 拆分为各声道数据
func (b *AudioBuffer) Split() [][]float64 {
	chans := make([][]float64, b.Channels)
	for ch := range chans {
		chans[ch] = b.Channel(ch)
	}
	return chans
}

// Mono 返回各声道平均后的单声道数据
func (b *AudioBuffer) Mono() []float64 {
	frames := b.Frames()
	out := make([]float64, frames)
	if b.Channels == 1 {
		copy(out, b.Samples)
		return out
	}
	scale := 1.0 / float64(b.Channels)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < b.Channels; ch++ {
			sum += b.Samples[i*b.Channels+ch]
		}
		out[i] = sum * scale
	}
	return out
}

// AudioMetadata 音频元数据
type AudioMetadata struct {
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Year     string `json:"year,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// SectionType 歌曲段落类型（开放集合）
type SectionType string

const (
	SectionIntro  SectionType = "intro"
	SectionVerse  SectionType = "verse"
	SectionChorus SectionType = "chorus"
	SectionBridge SectionType = "bridge"
	SectionOutro  SectionType = "outro"
)

// SongSection 结构化歌曲中的一个段落
type SongSection struct {
	Type            SectionType
	Order           int
	Vocals          *AudioBuffer // 可选
	Music           *AudioBuffer // 可选
	DurationSeconds float64
}

// StructuredSong 按顺序排列的段落
type StructuredSong struct {
	Sections    []SongSection
	CrossfadeMs float64
}

// MixSpec 人声与伴奏混音参数
type MixSpec struct {
	Vocals       *AudioBuffer
	Music        *AudioBuffer
	VocalsGainDB float64
	MusicGainDB  float64
	CrossfadeMs  float64
}
