package decoder

import (
	"fmt"
	"os"

	"audio-mastering-engine/internal/types"

	"github.com/go-audio/wav"
)

// WAVDecoder PCM WAV 解码器
type WAVDecoder struct{}

// SupportedFormats 返回支持的格式
func (d *WAVDecoder) SupportedFormats() []string {
	return []string{"wav", "wave"}
}

// Decode 先读取 INFO 标签，再回到数据块开头解码全部采样
func (d *WAVDecoder) Decode(filePath string) (*LoadedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: 打开WAV文件失败: %v", types.ErrInvalidInput, err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: 无效的WAV文件: %s", types.ErrInvalidInput, filePath)
	}

	// 标签损坏不影响解码
	dec.ReadMetadata()
	tags := wavTags(dec.Metadata)
	if err := dec.Rewind(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: 读取PCM数据失败: %v", types.ErrInvalidInput, err)
	}
	bitDepth := int(dec.BitDepth)
	scale, err := pcmScale(bitDepth)
	if err != nil {
		return nil, err
	}

	samples := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float64(v) / scale
	}
	return &LoadedFile{
		Buffer: &types.AudioBuffer{
			Samples:    samples,
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
			BitDepth:   bitDepth,
		},
		Format:   "wav",
		Metadata: tags,
	}, nil
}

// wavTags 从 LIST/INFO 块取出常用标签
func wavTags(m *wav.Metadata) types.AudioMetadata {
	if m == nil {
		return types.AudioMetadata{}
	}
	return types.AudioMetadata{
		Title:  m.Title,
		Artist: m.Artist,
		Album:  m.Product,
		Year:   m.CreationDate,
		Genre:  m.Genre,
	}
}
