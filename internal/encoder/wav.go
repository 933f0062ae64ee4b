package encoder

import (
	"io"

	"audio-mastering-engine/internal/types"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVEncoder 整数PCM WAV编码器
type WAVEncoder struct {
	Name     string
	BitDepth int
}

// Format 格式名
func (e *WAVEncoder) Format() string { return e.Name }

// Extension 文件扩展名
func (e *WAVEncoder) Extension() string { return ".wav" }

// Lossless WAV为无损格式
func (e *WAVEncoder) Lossless() bool { return true }

// Encode 写出WAV数据
func (e *WAVEncoder) Encode(w io.WriteSeeker, buf *types.AudioBuffer) error {
	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = quantize(s, e.BitDepth)
	}

	enc := wav.NewEncoder(w, buf.SampleRate, e.BitDepth, buf.Channels, 1)
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: buf.Channels,
			SampleRate:  buf.SampleRate,
		},
		Data:           data,
		SourceBitDepth: e.BitDepth,
	}
	if err := enc.Write(intBuf); err != nil {
		return err
	}
	return enc.Close()
}
