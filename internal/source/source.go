// Package source 按顺序尝试多个音源后端，前一个失败时使用下一个
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"audio-mastering-engine/internal/decoder"
	"audio-mastering-engine/internal/logging"
	"audio-mastering-engine/internal/types"

	"github.com/sirupsen/logrus"
)

// Provider 音源后端
type Provider interface {
	Name() string
	Fetch(ctx context.Context, key string) (*types.AudioBuffer, error)
}

// ProviderFunc 把函数包装为 Provider
type ProviderFunc struct {
	ID string
	Fn func(ctx context.Context, key string) (*types.AudioBuffer, error)
}

// Name 后端名称
func (p ProviderFunc) Name() string { return p.ID }

// Fetch 调用包装的函数
func (p ProviderFunc) Fetch(ctx context.Context, key string) (*types.AudioBuffer, error) {
	return p.Fn(ctx, key)
}

// FileProvider 从目录中按 key 查找音频文件
//
// key 可以带扩展名；不带扩展名时按解码器支持的扩展名依次查找。
type FileProvider struct {
	Dir      string
	registry *decoder.DecoderRegistry
}

// NewFileProvider 创建基于目录的音源
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir, registry: decoder.NewDecoderRegistry()}
}

// Name 后端名称
func (p *FileProvider) Name() string { return "file:" + p.Dir }

// Fetch 解码找到的第一个文件
func (p *FileProvider) Fetch(ctx context.Context, key string) (*types.AudioBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("%w: 音源 key 为空", types.ErrInvalidInput)
	}

	candidates := []string{filepath.Join(p.Dir, key)}
	if filepath.Ext(key) == "" {
		candidates = candidates[:0]
		for _, ext := range p.registry.Extensions() {
			candidates = append(candidates, filepath.Join(p.Dir, key+ext))
		}
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return p.registry.LoadBuffer(path)
	}
	return nil, fmt.Errorf("%w: 在 %s 中找不到 %s", types.ErrInvalidInput, p.Dir, key)
}

// Chain 有序的音源回退链
type Chain struct {
	providers []Provider
	log       logrus.FieldLogger
}

// NewChain 创建回退链，按给定顺序尝试
func NewChain(log logrus.FieldLogger, providers ...Provider) *Chain {
	return &Chain{providers: providers, log: logging.OrDiscard(log)}
}

// Fetch 依次尝试各后端，返回第一个成功的结果及其后端名称
//
// 后端返回错误或空缓冲区都视为失败并尝试下一个。全部失败时返回汇总错误。
func (c *Chain) Fetch(ctx context.Context, key string) (*types.AudioBuffer, string, error) {
	if len(c.providers) == 0 {
		return nil, "", fmt.Errorf("%w: 未配置任何音源", types.ErrInvalidInput)
	}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		buf, err := p.Fetch(ctx, key)
		if err == nil && buf.IsEmpty() {
			err = errors.New("返回了空音频")
		}
		if err != nil {
			c.log.WithFields(logrus.Fields{"provider": p.Name(), "key": key}).WithError(err).Info("音源失败，尝试下一个")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		c.log.WithFields(logrus.Fields{"provider": p.Name(), "key": key}).Debug("音源获取成功")
		return buf, p.Name(), nil
	}
	return nil, "", fmt.Errorf("%w: 所有音源均失败: %w", types.ErrProcessingFailed, errors.Join(errs...))
}
