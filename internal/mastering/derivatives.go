package mastering

import (
	"fmt"
	"math"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"
)

// Preview 截取开头 seconds 秒并在结尾淡出
func Preview(buf *types.AudioBuffer, seconds, fadeSeconds float64) (*types.AudioBuffer, error) {
	return cut(buf, seconds, fadeSeconds, "预览")
}

// RadioEdit 把歌曲截短到 seconds 秒并在结尾淡出，原曲更短时只做淡出
func RadioEdit(buf *types.AudioBuffer, seconds, fadeSeconds float64) (*types.AudioBuffer, error) {
	return cut(buf, seconds, fadeSeconds, "电台版")
}

func cut(buf *types.AudioBuffer, seconds, fadeSeconds float64, label string) (*types.AudioBuffer, error) {
	if buf.IsEmpty() {
		return nil, fmt.Errorf("%w: %s: 缓冲区为空", types.ErrInvalidInput, label)
	}
	if math.IsNaN(seconds) || seconds <= 0 {
		return nil, fmt.Errorf("%w: %s时长 %.1f 秒无效", types.ErrInvalidInput, label, seconds)
	}
	if math.IsNaN(fadeSeconds) || fadeSeconds < 0 {
		return nil, fmt.Errorf("%w: %s淡出时长 %.1f 秒无效", types.ErrInvalidInput, label, fadeSeconds)
	}

	frames := min(int(math.Round(seconds*float64(buf.SampleRate))), buf.Frames())
	samples := make([]float64, frames*buf.Channels)
	copy(samples, buf.Samples)

	// 淡出最长占片段的一半
	fade := min(int(math.Round(fadeSeconds*float64(buf.SampleRate))), frames/2)
	dsp.FadeOut(samples, buf.Channels, fade)

	out := buf.WithSamples(samples, buf.Channels)
	out.FileSize = 0
	return out, nil
}
