package encoder

import (
	"fmt"
	"io"

	"audio-mastering-engine/internal/types"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// flacBlockSize 每帧采样数
const flacBlockSize = 4096

// flacVendor 写入 VORBIS_COMMENT 块的厂商字符串
const flacVendor = "audio-mastering-engine"

// FLACEncoder FLAC无损编码器
type FLACEncoder struct {
	BitDepth int
	Tags     [][2]string // 写入 VORBIS_COMMENT 的标签，为空时不写该块
}

// Format 格式名
func (e *FLACEncoder) Format() string { return "flac" }

// Extension 文件扩展名
func (e *FLACEncoder) Extension() string { return ".flac" }

// Lossless FLAC为无损格式
func (e *FLACEncoder) Lossless() bool { return true }

// Encode 写出FLAC数据（逐字子帧）
func (e *FLACEncoder) Encode(w io.WriteSeeker, buf *types.AudioBuffer) error {
	var channels frame.Channels
	switch buf.Channels {
	case 1:
		channels = frame.ChannelsMono
	case 2:
		channels = frame.ChannelsLR
	default:
		return fmt.Errorf("FLAC不支持 %d 声道", buf.Channels)
	}

	frames := buf.Frames()
	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(buf.SampleRate),
		NChannels:     uint8(buf.Channels),
		BitsPerSample: uint8(e.BitDepth),
		NSamples:      uint64(frames),
	}

	// 编码器关闭时会一并关闭实现了 io.Closer 的输出，文件由调用方关闭
	var blocks []*meta.Block
	if len(e.Tags) > 0 {
		blocks = append(blocks, &meta.Block{
			Header: meta.Header{Type: meta.TypeVorbisComment, Length: 1},
			Body:   &meta.VorbisComment{Vendor: flacVendor, Tags: e.Tags},
		})
	}
	enc, err := flac.NewEncoder(struct{ io.WriteSeeker }{w}, info, blocks...)
	if err != nil {
		return fmt.Errorf("创建FLAC编码器失败: %w", err)
	}

	for start, num := 0, 0; start < frames; start, num = start+flacBlockSize, num+1 {
		n := flacBlockSize
		if start+n > frames {
			n = frames - start
		}

		subframes := make([]*frame.Subframe, buf.Channels)
		for ch := range subframes {
			samples := make([]int32, n)
			for i := 0; i < n; i++ {
				samples[i] = int32(quantize(buf.Samples[(start+i)*buf.Channels+ch], e.BitDepth))
			}
			subframes[ch] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  n,
			}
		}

		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(n),
				SampleRate:        uint32(buf.SampleRate),
				Channels:          channels,
				BitsPerSample:     uint8(e.BitDepth),
				Num:               uint64(num),
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			enc.Close()
			return fmt.Errorf("写入FLAC帧失败: %w", err)
		}
	}

	return enc.Close()
}
