package decoder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audio-mastering-engine/internal/types"
)

// AudioDecoder 音频解码器接口
type AudioDecoder interface {
	Decode(filePath string) (*LoadedFile, error)
	SupportedFormats() []string
}

// DecoderRegistry 解码器注册表
type DecoderRegistry struct {
	decoders map[string]AudioDecoder
}

// NewDecoderRegistry 创建新的解码器注册表
func NewDecoderRegistry() *DecoderRegistry {
	registry := &DecoderRegistry{
		decoders: make(map[string]AudioDecoder),
	}

	registry.Register(&WAVDecoder{})
	registry.Register(&FLACDecoder{})

	return registry
}

// Register 注册解码器
func (r *DecoderRegistry) Register(decoder AudioDecoder) {
	for _, format := range decoder.SupportedFormats() {
		r.decoders[strings.ToLower(format)] = decoder
	}
}

// Extensions 返回支持的扩展名（带点号）
func (r *DecoderRegistry) Extensions() []string {
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, "."+ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports 判断文件扩展名是否可解码
func (r *DecoderRegistry) Supports(filePath string) bool {
	_, err := r.GetDecoder(filePath)
	return err == nil
}

// GetDecoder 根据文件扩展名获取解码器
func (r *DecoderRegistry) GetDecoder(filePath string) (AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == "" {
		return nil, fmt.Errorf("%w: 无法确定文件格式: %s", types.ErrInvalidInput, filePath)
	}

	// 移除点号
	ext = ext[1:]

	decoder, exists := r.decoders[ext]
	if !exists {
		return nil, fmt.Errorf("%w: 不支持的音频格式: %s", types.ErrInvalidInput, ext)
	}

	return decoder, nil
}

// LoadedFile 完整解码后的音频及其描述信息
type LoadedFile struct {
	Buffer   *types.AudioBuffer
	Format   string
	Metadata types.AudioMetadata
}

// Load 解码文件并返回完整的PCM缓冲区
func (r *DecoderRegistry) Load(filePath string) (*LoadedFile, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	decoder, err := r.GetDecoder(filePath)
	if err != nil {
		return nil, err
	}

	loaded, err := decoder.Decode(filePath)
	if err != nil {
		return nil, err
	}
	buf := loaded.Buffer
	if buf.Channels < 1 || buf.Channels > 2 {
		return nil, fmt.Errorf("%w: 不支持的声道数 %d: %s", types.ErrInvalidInput, buf.Channels, filePath)
	}
	buf.FileSize = info.Size()
	loaded.Metadata.Duration = buf.DurationTime().String()
	return loaded, nil
}

// pcmScale 整数采样到 [-1,1) 的缩放系数
func pcmScale(bitDepth int) (float64, error) {
	if bitDepth < 1 || bitDepth > 32 {
		return 0, fmt.Errorf("%w: 无效的位深度: %d", types.ErrInvalidInput, bitDepth)
	}
	return float64(int64(1) << uint(bitDepth-1)), nil
}

// LoadBuffer 仅返回解码后的缓冲区
func (r *DecoderRegistry) LoadBuffer(filePath string) (*types.AudioBuffer, error) {
	loaded, err := r.Load(filePath)
	if err != nil {
		return nil, err
	}
	return loaded.Buffer, nil
}
