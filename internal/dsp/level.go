// Package dsp 提供各处理阶段共用的信号处理基础函数
package dsp

import "math"

// MinDB 静音时使用的电平下限
const MinDB = -120.0

// ClipLevel 绝对值达到该值的采样计为削波
const ClipLevel = 0.99

// DBToLinear 分贝转线性增益
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB 线性幅度转分贝，下限为 MinDB
func LinearToDB(v float64) float64 {
	if v <= 0 {
		return MinDB
	}
	db := 20 * math.Log10(v)
	if db < MinDB {
		return MinDB
	}
	return db
}

// PowerToDB 功率转分贝
func PowerToDB(p float64) float64 {
	if p <= 0 {
		return MinDB
	}
	db := 10 * math.Log10(p)
	if db < MinDB {
		return MinDB
	}
	return db
}

// Peak 返回最大绝对值
func Peak(samples []float64) float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// MeanSquare 均方值
func MeanSquare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return sum / float64(len(samples))
}

// RMS 均方根
func RMS(samples []float64) float64 {
	return math.Sqrt(MeanSquare(samples))
}

// Mean 平均值（用于直流偏移）
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// Ratio 统计满足条件的采样所占比例
func Ratio(samples []float64, pred func(float64) bool) float64 {
	if len(samples) == 0 {
		return 0
	}
	n := 0
	for _, s := range samples {
		if pred(s) {
			n++
		}
	}
	return float64(n) / float64(len(samples))
}

// IsSilent 峰值低于阈值即视为静音
func IsSilent(samples []float64) bool {
	return Peak(samples) < 1e-9
}

// Finite 检查是否存在 NaN 或 Inf
func Finite(samples []float64) bool {
	for _, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return false
		}
	}
	return true
}

// Scale 原地乘以线性增益
func Scale(samples []float64, gain float64) {
	for i := range samples {
		samples[i] *= gain
	}
}

// Clamp 限制取值范围
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
