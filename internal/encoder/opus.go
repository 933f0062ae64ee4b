package encoder

import (
	"fmt"
	"io"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"

	"github.com/thesyncim/gopus"
	"github.com/thesyncim/gopus/container/ogg"
)

// opusRate Opus内部采样率
const opusRate = 48000

// OpusEncoder Ogg封装的Opus有损编码器
type OpusEncoder struct {
	Bitrate    int
	Complexity int
}

// Format 格式名
func (e *OpusEncoder) Format() string { return "opus" }

// Extension 文件扩展名
func (e *OpusEncoder) Extension() string { return ".opus" }

// Lossless Opus为有损格式
func (e *OpusEncoder) Lossless() bool { return false }

// Encode 重采样到48 kHz后按20 ms帧编码
func (e *OpusEncoder) Encode(w io.WriteSeeker, buf *types.AudioBuffer) error {
	src := buf
	if buf.SampleRate != opusRate {
		src = dsp.Resample(buf, opusRate)
	}

	enc, err := gopus.NewEncoder(gopus.EncoderConfig{SampleRate: opusRate, Channels: src.Channels, Application: gopus.ApplicationAudio})
	if err != nil {
		return fmt.Errorf("创建Opus编码器失败: %w", err)
	}
	if err := enc.SetBitrate(e.Bitrate); err != nil {
		return err
	}
	if err := enc.SetComplexity(e.Complexity); err != nil {
		return err
	}

	ow, err := ogg.NewWriter(w, uint32(buf.SampleRate), uint8(src.Channels))
	if err != nil {
		return fmt.Errorf("创建Ogg写入器失败: %w", err)
	}

	frameSize := enc.FrameSize()
	ch := src.Channels
	frames := src.Frames()
	pcm := make([]float32, frameSize*ch)

	for start := 0; start < frames; start += frameSize {
		for i := range pcm {
			pcm[i] = 0
		}
		n := frameSize
		if start+n > frames {
			n = frames - start
		}
		for i := 0; i < n*ch; i++ {
			pcm[i] = float32(src.Samples[start*ch+i])
		}

		packet, err := enc.EncodeFloat32(pcm)
		if err != nil {
			return fmt.Errorf("Opus编码失败: %w", err)
		}
		if len(packet) == 0 {
			continue
		}
		// 末帧补零部分不计入 granule
		if err := ow.WritePacket(packet, n); err != nil {
			return fmt.Errorf("写入Ogg页失败: %w", err)
		}
	}

	return ow.Close()
}
