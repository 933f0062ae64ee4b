package validator

import (
	"math"
	"strings"
	"testing"

	"audio-mastering-engine/internal/types"
)

func sine(amp, secs float64, sampleRate int) *types.AudioBuffer {
	frames := int(secs * float64(sampleRate))
	buf := types.NewAudioBuffer(frames, sampleRate, 1)
	for i := range buf.Samples {
		buf.Samples[i] = amp * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}
	return buf
}

func constraints() types.ValidationConstraints {
	return types.ValidationConstraints{
		MinDuration:        5,
		MaxDuration:        300,
		MinSampleRate:      16000,
		ClippingErrorRatio: 0.05,
		SilenceWarnRatio:   0.30,
		SilenceFloorDB:     -50,
		MinDynamicRangeDB:  6,
		MaxDynamicRangeDB:  30,
		MaxDCOffset:        0.01,
	}
}

func TestValidateCleanSine(t *testing.T) {
	buf := sine(0.5, 10, 44100)
	report := NewValidator(nil).Validate(buf, constraints())

	if !report.IsValid {
		t.Fatalf("expected valid, errors: %v", report.Errors)
	}
	if len(report.Errors) != 0 {
		t.Errorf("errors = %v", report.Errors)
	}
	if report.Grade != "A" && report.Grade != "B" {
		t.Errorf("grade = %s (score %.1f), want A or B", report.Grade, report.QualityScore)
	}
	if math.Abs(report.Metrics.Duration-10) > 1e-9 {
		t.Errorf("duration = %v", report.Metrics.Duration)
	}
	if report.Metrics.ClippingRatio != 0 {
		t.Errorf("clipping ratio = %v", report.Metrics.ClippingRatio)
	}
}

func TestClippingLowersScore(t *testing.T) {
	clean := sine(0.5, 10, 44100)
	clipped := clean.Clone()
	for i := 0; i < len(clipped.Samples); i += 10 {
		clipped.Samples[i] = 1.0
	}

	v := NewValidator(nil)
	cleanReport := v.Validate(clean, constraints())
	clippedReport := v.Validate(clipped, constraints())

	if math.Abs(clippedReport.Metrics.ClippingRatio-0.1) > 0.001 {
		t.Errorf("clipping ratio = %v, want 0.1", clippedReport.Metrics.ClippingRatio)
	}
	if clippedReport.QualityScore >= cleanReport.QualityScore {
		t.Errorf("clipped score %.1f not below clean score %.1f", clippedReport.QualityScore, cleanReport.QualityScore)
	}
	found := false
	for _, msg := range append(clippedReport.Errors, clippedReport.Warnings...) {
		if strings.Contains(msg, "削波") {
			found = true
		}
	}
	if !found {
		t.Errorf("no clipping issue reported: %+v", clippedReport)
	}
	if clippedReport.IsValid {
		t.Error("10% clipping should be a hard error")
	}
}

func TestSmallClippingIsWarning(t *testing.T) {
	buf := sine(0.5, 10, 44100)
	for i := 0; i < len(buf.Samples); i += 1000 {
		buf.Samples[i] = 1.0
	}
	report := NewValidator(nil).Validate(buf, constraints())
	if !report.IsValid {
		t.Errorf("0.1%% clipping should not invalidate: %v", report.Errors)
	}
	if len(report.Warnings) == 0 {
		t.Error("expected clipping warning")
	}
}

func TestHardFailures(t *testing.T) {
	tests := []struct {
		name string
		buf  *types.AudioBuffer
		c    func(types.ValidationConstraints) types.ValidationConstraints
	}{
		{
			name: "too short",
			buf:  sine(0.5, 2, 44100),
		},
		{
			name: "too long",
			buf:  sine(0.5, 10, 16000),
			c: func(c types.ValidationConstraints) types.ValidationConstraints {
				c.MaxDuration = 8
				return c
			},
		},
		{
			name: "low sample rate",
			buf:  sine(0.5, 6, 8000),
		},
		{
			name: "file too large",
			buf:  sine(0.5, 6, 44100),
			c: func(c types.ValidationConstraints) types.ValidationConstraints {
				c.MaxFileSizeMB = 0.1
				return c
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := constraints()
			if tt.c != nil {
				c = tt.c(c)
			}
			report := NewValidator(nil).Validate(tt.buf, c)
			if report.IsValid {
				t.Fatal("expected invalid report")
			}
			if report.QualityScore > 80 {
				t.Errorf("score = %.1f, want error penalty applied", report.QualityScore)
			}
		})
	}
}

func TestSilenceAndDCWarnings(t *testing.T) {
	buf := sine(0.5, 10, 22050)
	half := len(buf.Samples) / 2
	for i := 0; i < half; i++ {
		buf.Samples[i] = 0
	}
	for i := range buf.Samples {
		buf.Samples[i] += 0.05
	}

	report := NewValidator(nil).Validate(buf, constraints())
	var silence, dc bool
	for _, w := range report.Warnings {
		if strings.Contains(w, "静音") {
			silence = true
		}
		if strings.Contains(w, "直流") {
			dc = true
		}
	}
	// 加了直流偏移后前半段不再低于静音门限
	if silence {
		t.Error("offset samples should not count as silence")
	}
	if !dc {
		t.Errorf("missing DC offset warning: %v", report.Warnings)
	}

	quiet := sine(0.5, 10, 22050)
	for i := 0; i < len(quiet.Samples)/2; i++ {
		quiet.Samples[i] = 0
	}
	report = NewValidator(nil).Validate(quiet, constraints())
	silence = false
	for _, w := range report.Warnings {
		if strings.Contains(w, "静音") {
			silence = true
		}
	}
	if !silence {
		t.Errorf("missing silence warning: %v", report.Warnings)
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	buf := sine(1.2, 6, 44100)
	before := buf.Clone()
	NewValidator(nil).Validate(buf, constraints())
	for i := range buf.Samples {
		if buf.Samples[i] != before.Samples[i] {
			t.Fatalf("sample %d mutated", i)
		}
	}
}

func TestGrade(t *testing.T) {
	tests := map[float64]string{100: "A", 90: "A", 89.9: "B", 80: "B", 75: "C", 60: "D", 59: "F", 0: "F"}
	for score, want := range tests {
		if got := Grade(score); got != want {
			t.Errorf("Grade(%v) = %s, want %s", score, got, want)
		}
	}
}
