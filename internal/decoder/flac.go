package decoder

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"audio-mastering-engine/internal/types"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// FLACDecoder FLAC 解码器
type FLACDecoder struct{}

// SupportedFormats 返回支持的格式
func (d *FLACDecoder) SupportedFormats() []string {
	return []string{"flac"}
}

// Decode 解析全部元数据块后逐帧解码
func (d *FLACDecoder) Decode(filePath string) (*LoadedFile, error) {
	stream, err := flac.ParseFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析FLAC文件失败: %v", types.ErrInvalidInput, err)
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 || info.NChannels == 0 {
		return nil, fmt.Errorf("%w: 无法读取FLAC信息: %s", types.ErrInvalidInput, filePath)
	}
	channels := int(info.NChannels)
	scale, err := pcmScale(int(info.BitsPerSample))
	if err != nil {
		return nil, err
	}

	samples := make([]float64, 0, int(info.NSamples)*channels)
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: 解析FLAC帧失败: %v", types.ErrInvalidInput, err)
		}
		n := len(f.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float64(f.Subframes[ch].Samples[i])/scale)
			}
		}
	}

	return &LoadedFile{
		Buffer: &types.AudioBuffer{
			Samples:    samples,
			SampleRate: int(info.SampleRate),
			Channels:   channels,
			BitDepth:   int(info.BitsPerSample),
		},
		Format:   "flac",
		Metadata: vorbisTags(stream.Blocks),
	}, nil
}

// vorbisTags 从 VORBIS_COMMENT 块取出常用标签，键名不区分大小写
func vorbisTags(blocks []*meta.Block) types.AudioMetadata {
	var md types.AudioMetadata
	for _, block := range blocks {
		comment, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		for _, tag := range comment.Tags {
			switch strings.ToUpper(tag[0]) {
			case "TITLE":
				md.Title = tag[1]
			case "ARTIST":
				md.Artist = tag[1]
			case "ALBUM":
				md.Album = tag[1]
			case "DATE":
				md.Year = tag[1]
			case "GENRE":
				md.Genre = tag[1]
			}
		}
	}
	return md
}
