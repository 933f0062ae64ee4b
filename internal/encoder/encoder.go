// Package encoder 将PCM缓冲区写出为各种音频格式
package encoder

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audio-mastering-engine/internal/types"

	"github.com/google/uuid"
)

// AudioEncoder 音频编码器接口
type AudioEncoder interface {
	Format() string
	Extension() string
	Lossless() bool
	Encode(w io.WriteSeeker, buf *types.AudioBuffer) error
}

// EncoderRegistry 编码器注册表，按格式名索引
type EncoderRegistry struct {
	encoders map[string]AudioEncoder
}

// NewEncoderRegistry 创建包含默认编码器的注册表
func NewEncoderRegistry() *EncoderRegistry {
	registry := &EncoderRegistry{
		encoders: make(map[string]AudioEncoder),
	}

	registry.Register(&WAVEncoder{Name: "wav", BitDepth: 16})
	registry.Register(&WAVEncoder{Name: "wav24", BitDepth: 24})
	registry.Register(&FLACEncoder{BitDepth: 16, Tags: [][2]string{{"ENCODER", flacVendor}}})
	registry.Register(&OpusEncoder{Bitrate: 320000, Complexity: 10})

	return registry
}

// Register 注册编码器
func (r *EncoderRegistry) Register(enc AudioEncoder) {
	r.encoders[strings.ToLower(enc.Format())] = enc
}

// Formats 返回已注册的格式名
func (r *EncoderRegistry) Formats() []string {
	names := make([]string, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get 获取编码器
func (r *EncoderRegistry) Get(format string) (AudioEncoder, error) {
	enc, ok := r.encoders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: 不支持的输出格式: %s", types.ErrExportFailed, format)
	}
	return enc, nil
}

// ForPath 根据扩展名选择编码器
func (r *EncoderRegistry) ForPath(path string) (AudioEncoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, fmt.Errorf("%w: 输出路径缺少扩展名: %s", types.ErrExportFailed, path)
	}
	for _, name := range r.Formats() {
		if enc := r.encoders[name]; enc.Extension() == ext {
			return enc, nil
		}
	}
	return nil, fmt.Errorf("%w: 无法根据扩展名确定输出格式: %s", types.ErrExportFailed, path)
}

// OutputPath 根据格式生成输出路径，同扩展名的不同变体带格式后缀
func OutputPath(base string, enc AudioEncoder) string {
	ext := enc.Extension()
	if strings.TrimPrefix(ext, ".") == enc.Format() {
		return base + ext
	}
	return base + "-" + enc.Format() + ext
}

// WriteFile 编码并原子写入文件：先写临时文件再重命名
func (r *EncoderRegistry) WriteFile(path, format string, buf *types.AudioBuffer) error {
	enc, err := r.Get(format)
	if err != nil {
		return err
	}
	return WriteAtomic(path, enc, buf)
}

// WriteAtomic 使用指定编码器原子写入
func WriteAtomic(path string, enc AudioEncoder, buf *types.AudioBuffer) error {
	if buf.IsEmpty() {
		return fmt.Errorf("%w: 缓冲区为空: %s", types.ErrExportFailed, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: 创建输出目录失败: %v", types.ErrExportFailed, err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: 创建临时文件失败: %v", types.ErrExportFailed, err)
	}

	if err := enc.Encode(file, buf); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s 编码失败: %v", types.ErrExportFailed, enc.Format(), err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: 同步文件失败: %v", types.ErrExportFailed, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: 关闭文件失败: %v", types.ErrExportFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: 重命名失败: %v", types.ErrExportFailed, err)
	}
	return nil
}

// quantize 将归一化采样转换为指定位深的整数
func quantize(v float64, bitDepth int) int {
	maxVal := float64(int(1) << uint(bitDepth-1))
	s := math.Round(v * maxVal)
	if s > maxVal-1 {
		s = maxVal - 1
	}
	if s < -maxVal {
		s = -maxVal
	}
	return int(s)
}
