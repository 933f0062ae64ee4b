package enhance

import (
	"errors"
	"math"
	"testing"

	"audio-mastering-engine/internal/dsp"
	"audio-mastering-engine/internal/types"
)

const sr = 44100

func TestIdentityLaws(t *testing.T) {
	left := generateSine(440, 0.4, 1, sr)
	right := generateSine(660, 0.3, 1, sr)
	buf := stereoBuffer(left, right, sr)

	t.Run("compress ratio 1", func(t *testing.T) {
		out, err := Compress(buf, CompressorParams{ThresholdDB: -30, Ratio: 1, AttackMs: 5, ReleaseMs: 50})
		if err != nil {
			t.Fatal(err)
		}
		if d := maxAbsDiff(out.Samples, buf.Samples); d > 1e-12 {
			t.Errorf("max diff = %g", d)
		}
	})

	t.Run("compress threshold above peak", func(t *testing.T) {
		out, err := Compress(buf, CompressorParams{ThresholdDB: 0, Ratio: 8, AttackMs: 5, ReleaseMs: 50})
		if err != nil {
			t.Fatal(err)
		}
		if d := maxAbsDiff(out.Samples, buf.Samples); d > 1e-12 {
			t.Errorf("max diff = %g", d)
		}
	})

	t.Run("widen width 1", func(t *testing.T) {
		out, err := Widen(buf, 1)
		if err != nil {
			t.Fatal(err)
		}
		if d := maxAbsDiff(out.Samples, buf.Samples); d > 1e-12 {
			t.Errorf("max diff = %g", d)
		}
	})

	t.Run("noise strength 0", func(t *testing.T) {
		out, err := NewNoiseReducer().Reduce(buf, 0)
		if err != nil {
			t.Fatal(err)
		}
		if d := maxAbsDiff(out.Samples, buf.Samples); d > 1e-12 {
			t.Errorf("max diff = %g", d)
		}
	})
}

func TestStagesDoNotMutateInput(t *testing.T) {
	buf := monoBuffer(generateSine(440, 0.9, 0.5, sr), sr)
	orig := buf.Clone()

	if _, err := Compress(buf, CompressorParams{ThresholdDB: -20, Ratio: 4, AttackMs: 5, ReleaseMs: 50}); err != nil {
		t.Fatal(err)
	}
	if _, err := Widen(buf, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := Normalize(buf, -14, dsp.DefaultSafety()); err != nil {
		t.Fatal(err)
	}
	if _, err := NewNoiseReducer().Reduce(buf, 0.5); err != nil {
		t.Fatal(err)
	}
	if d := maxAbsDiff(buf.Samples, orig.Samples); d != 0 {
		t.Errorf("input mutated by %g", d)
	}
}

func TestNoiseReductionSuppressesNoiseOnlyRegion(t *testing.T) {
	noise := generateNoise(0.05, 3, sr, 7)
	tone := generateSine(1000, 0.5, 2, sr)
	signal := make([]float64, len(noise))
	copy(signal, noise)
	offset := sr
	for i, s := range tone {
		signal[offset+i] += s
	}
	buf := monoBuffer(signal, sr)

	out, err := NewNoiseReducer().Reduce(buf, 0.8)
	if err != nil {
		t.Fatal(err)
	}

	// 只比较远离过渡区的部分
	noiseIn := rmsDB(buf.Samples[4096 : sr-4096])
	noiseOut := rmsDB(out.Samples[4096 : sr-4096])
	if noiseIn-noiseOut < 6 {
		t.Errorf("noise region reduced by %.1f dB, want at least 6 dB", noiseIn-noiseOut)
	}

	toneIn := rmsDB(buf.Samples[offset+4096 : offset+sr])
	toneOut := rmsDB(out.Samples[offset+4096 : offset+sr])
	if math.Abs(toneIn-toneOut) > 1 {
		t.Errorf("tone level changed by %.2f dB", toneIn-toneOut)
	}
}

func TestNoiseReductionEdgeCases(t *testing.T) {
	r := NewNoiseReducer()

	silent := types.NewAudioBuffer(sr, sr, 2)
	out, err := r.Reduce(silent, 1)
	if err != nil {
		t.Fatalf("silent buffer: %v", err)
	}
	if dsp.Peak(out.Samples) != 0 {
		t.Error("silent buffer changed")
	}

	short := monoBuffer(generateNoise(0.1, 0.01, sr, 3), sr)
	out, err = r.Reduce(short, 1)
	if err != nil {
		t.Fatalf("short buffer: %v", err)
	}
	if len(out.Samples) != len(short.Samples) {
		t.Errorf("length changed: %d -> %d", len(short.Samples), len(out.Samples))
	}

	for _, s := range []float64{-0.1, 1.5, math.NaN()} {
		if _, err := r.Reduce(short, s); !errors.Is(err, types.ErrInvalidInput) {
			t.Errorf("strength %v: err = %v", s, err)
		}
	}
}

func TestCompressorAttackReleaseAsymmetry(t *testing.T) {
	var signal []float64
	signal = append(signal, generateSine(1000, 0.05, 0.5, sr)...)
	onset := len(signal)
	signal = append(signal, generateSine(1000, 0.9, 1, sr)...)
	offset := len(signal)
	signal = append(signal, generateSine(1000, 0.05, 1.5, sr)...)
	buf := monoBuffer(signal, sr)

	p := CompressorParams{ThresholdDB: -20, Ratio: 4, AttackMs: 5, ReleaseMs: 200}
	red := gainReduction(buf, p)
	maxRed := red[offset-1]
	if maxRed < 8 {
		t.Fatalf("steady-state reduction = %.2f dB, want about 12 dB", maxRed)
	}

	attackFrames := -1
	for i := onset; i < offset; i++ {
		if red[i] >= 0.9*maxRed {
			attackFrames = i - onset
			break
		}
	}
	releaseFrames := -1
	for i := offset; i < len(red); i++ {
		if red[i] <= 0.1*maxRed {
			releaseFrames = i - offset
			break
		}
	}
	if attackFrames < 0 || releaseFrames < 0 {
		t.Fatalf("attack=%d release=%d frames", attackFrames, releaseFrames)
	}
	if releaseFrames < 5*attackFrames {
		t.Errorf("release %d frames not much slower than attack %d frames", releaseFrames, attackFrames)
	}

	out, err := Compress(buf, p)
	if err != nil {
		t.Fatal(err)
	}
	loudIn := rmsDB(buf.Samples[onset+sr/10 : offset])
	loudOut := rmsDB(out.Samples[onset+sr/10 : offset])
	if loudIn-loudOut < 8 {
		t.Errorf("loud section reduced by %.1f dB", loudIn-loudOut)
	}
	quietIn := rmsDB(buf.Samples[:onset])
	quietOut := rmsDB(out.Samples[:onset])
	if math.Abs(quietIn-quietOut) > 0.01 {
		t.Errorf("quiet section changed by %.3f dB", quietIn-quietOut)
	}
}

func TestCompressorRejectsBadParams(t *testing.T) {
	buf := monoBuffer(generateSine(440, 0.5, 0.1, sr), sr)
	bad := []CompressorParams{
		{ThresholdDB: -20, Ratio: 0.5, AttackMs: 5, ReleaseMs: 50},
		{ThresholdDB: -20, Ratio: 2, AttackMs: 0, ReleaseMs: 50},
		{ThresholdDB: -20, Ratio: 2, AttackMs: 5, ReleaseMs: -1},
	}
	for _, p := range bad {
		if _, err := Compress(buf, p); !errors.Is(err, types.ErrInvalidInput) {
			t.Errorf("%+v: err = %v", p, err)
		}
	}
}

func TestWidenMonoUpmixes(t *testing.T) {
	buf := monoBuffer(generateSine(440, 0.5, 0.5, sr), sr)
	out, err := Widen(buf, 2)
	if err != nil {
		t.Fatalf("mono widen: %v", err)
	}
	if out.Channels != 2 {
		t.Fatalf("channels = %d", out.Channels)
	}
	if out.Frames() != buf.Frames() {
		t.Errorf("frames = %d, want %d", out.Frames(), buf.Frames())
	}
	// 两个相同声道没有侧信号
	for i := 0; i < len(out.Samples); i += 2 {
		if out.Samples[i] != out.Samples[i+1] {
			t.Fatalf("frame %d: L != R", i/2)
		}
	}
}

func TestWidenWidthScenarios(t *testing.T) {
	left := generateSine(440, 0.3, 1, sr)
	right := generateSine(550, 0.2, 1, sr)
	buf := stereoBuffer(left, right, sr)

	collapsed, err := Widen(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c := Correlation(collapsed); math.Abs(c-1) > 1e-9 {
		t.Errorf("width 0 correlation = %v, want 1", c)
	}

	side := func(b *types.AudioBuffer) float64 {
		diff := make([]float64, b.Frames())
		for i := range diff {
			diff[i] = b.Samples[2*i] - b.Samples[2*i+1]
		}
		return dsp.RMS(diff)
	}

	unity, err := Widen(buf, 1)
	if err != nil {
		t.Fatal(err)
	}
	wide, err := Widen(buf, 2)
	if err != nil {
		t.Fatal(err)
	}
	if ratio := side(wide) / side(unity); math.Abs(ratio-2) > 0.05 {
		t.Errorf("side ratio = %.3f, want about 2", ratio)
	}
	if p := dsp.Peak(wide.Samples); p >= 1 {
		t.Errorf("width 2 peak = %v", p)
	}
}

func TestWidenRescalesNewClipping(t *testing.T) {
	left := generateSine(440, 0.9, 0.5, sr)
	right := generateSine(440, -0.9, 0.5, sr)[:len(left)]
	buf := stereoBuffer(left, right, sr)

	out, err := Widen(buf, 3)
	if err != nil {
		t.Fatal(err)
	}
	if p := dsp.Peak(out.Samples); p >= dsp.ClipLevel {
		t.Errorf("peak after widening = %v", p)
	}
}

func TestWidenRejectsBadWidth(t *testing.T) {
	buf := stereoBuffer(generateSine(440, 0.3, 0.1, sr), generateSine(440, 0.3, 0.1, sr), sr)
	for _, w := range []float64{-0.1, 3.5, math.NaN()} {
		if _, err := Widen(buf, w); !errors.Is(err, types.ErrInvalidInput) {
			t.Errorf("width %v: err = %v", w, err)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tests := []struct {
		name   string
		amp    float64
		target float64
	}{
		{"gain only", 0.1, -16},
		{"safety engaged", 0.3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := stereoBuffer(generateSine(1000, tt.amp, 3, sr), generateSine(1000, tt.amp, 3, sr), sr)
			once, err := Normalize(buf, tt.target, dsp.DefaultSafety())
			if err != nil {
				t.Fatal(err)
			}
			twice, err := Normalize(once, tt.target, dsp.DefaultSafety())
			if err != nil {
				t.Fatal(err)
			}
			if d := math.Abs(peakDB(once.Samples) - peakDB(twice.Samples)); d >= 0.1 {
				t.Errorf("peak changed by %.3f dB", d)
			}
			if d := math.Abs(rmsDB(once.Samples) - rmsDB(twice.Samples)); d >= 0.1 {
				t.Errorf("rms changed by %.3f dB", d)
			}
			if p := dsp.Peak(twice.Samples); p >= dsp.ClipLevel {
				t.Errorf("peak = %v", p)
			}
		})
	}
}

func TestNormalizeHitsTarget(t *testing.T) {
	buf := monoBuffer(generateSine(1000, 0.1, 3, sr), sr)
	out, err := Normalize(buf, -20, dsp.DefaultSafety())
	if err != nil {
		t.Fatal(err)
	}
	if got := dsp.IntegratedLoudness(out); math.Abs(got+20) > 0.1 {
		t.Errorf("loudness = %.2f LUFS, want -20", got)
	}
}

func TestNormalizeSilentFails(t *testing.T) {
	_, err := Normalize(types.NewAudioBuffer(sr, sr, 1), -14, dsp.DefaultSafety())
	if !errors.Is(err, types.ErrProcessingFailed) {
		t.Errorf("err = %v, want ErrProcessingFailed", err)
	}
}
