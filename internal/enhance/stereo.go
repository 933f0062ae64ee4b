package enhance

import (
	"fmt"
	"math"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"
)

// MaxStereoWidth 立体声宽度上限
const MaxStereoWidth = 3.0

// widenSafePeak 扩展后重新缩放的目标峰值
var widenSafePeak = dsp.DBToLinear(-0.5)

// Widen 用中/侧处理调整立体声宽度，返回新的双声道缓冲区
//
// 单声道输入先复制为两个相同声道。width=1 不改变信号，width=0 合并为单声道。
// 扩展导致新的削波时整体缩放回安全峰值。
func Widen(buf *types.AudioBuffer, width float64) (*types.AudioBuffer, error) {
	if math.IsNaN(width) || width < 0 || width > MaxStereoWidth {
		return nil, fmt.Errorf("%w: 立体声宽度 %.2f 超出 [0,%.0f]", types.ErrInvalidInput, width, MaxStereoWidth)
	}
	if buf.Channels != 1 && buf.Channels != 2 {
		return nil, fmt.Errorf("%w: 立体声扩展不支持 %d 声道", types.ErrInvalidInput, buf.Channels)
	}

	stereo := dsp.ConvertChannels(buf, 2)
	if width == 1 || stereo.IsEmpty() {
		return stereo, nil
	}

	inPeak := dsp.Peak(stereo.Samples)
	s := stereo.Samples
	for i := 0; i+1 < len(s); i += 2 {
		mid := (s[i] + s[i+1]) / 2
		side := (s[i] - s[i+1]) / 2 * width
		s[i] = mid + side
		s[i+1] = mid - side
	}

	if outPeak := dsp.Peak(s); outPeak >= dsp.ClipLevel && outPeak > inPeak {
		dsp.Scale(s, widenSafePeak/outPeak)
	}
	return stereo, nil
}

// Correlation 返回左右声道的皮尔逊相关系数，单声道返回 1
func Correlation(buf *types.AudioBuffer) float64 {
	if buf.Channels != 2 {
		return 1
	}
	var sl, sr, sll, srr, slr float64
	n := float64(buf.Frames())
	if n == 0 {
		return 1
	}
	for i := 0; i+1 < len(buf.Samples); i += 2 {
		l, r := buf.Samples[i], buf.Samples[i+1]
		sl += l
		sr += r
		sll += l * l
		srr += r * r
		slr += l * r
	}
	cov := slr/n - (sl/n)*(sr/n)
	vl := sll/n - (sl/n)*(sl/n)
	vr := srr/n - (sr/n)*(sr/n)
	if vl <= 0 || vr <= 0 {
		if vl <= 0 && vr <= 0 {
			return 1
		}
		return 0
	}
	return cov / math.Sqrt(vl*vr)
}
