package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"audio-mastering-engine/internal/encoder"
	"audio-mastering-engine/internal/types"

	"gonum.org/v1/gonum/dsp/fourier"
)

const sr = 44100

func sineBuffer(freq, amp, secs float64, sampleRate int) *types.AudioBuffer {
	n := int(secs * float64(sampleRate))
	buf := types.NewAudioBuffer(n, sampleRate, 1)
	for i := range buf.Samples {
		buf.Samples[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return buf
}

func noiseBuffer(amp, secs float64, sampleRate int, seed int64) *types.AudioBuffer {
	rng := rand.New(rand.NewSource(seed))
	n := int(secs * float64(sampleRate))
	buf := types.NewAudioBuffer(n, sampleRate, 1)
	for i := range buf.Samples {
		buf.Samples[i] = amp * rng.NormFloat64()
	}
	return buf
}

// lowpass 频域砖墙低通
func lowpass(buf *types.AudioBuffer, cutoff float64) *types.AudioBuffer {
	n := len(buf.Samples)
	if n%2 == 1 {
		n--
	}
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, buf.Samples[:n])
	for k := range coeffs {
		if fft.Freq(k)*float64(buf.SampleRate) > cutoff {
			coeffs[k] = 0
		}
	}
	seq := fft.Sequence(nil, coeffs)
	for i := range seq {
		seq[i] /= float64(n)
	}
	return buf.WithSamples(seq, 1)
}

func TestAnalyzeLoudnessSine(t *testing.T) {
	m, err := AnalyzeLoudness(sineBuffer(1000, 0.5, 5, sr))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.PeakDB-(-6.02)) > 0.05 {
		t.Errorf("peak = %.2f dB", m.PeakDB)
	}
	if math.Abs(m.RMSDB-(-9.03)) > 0.05 {
		t.Errorf("rms = %.2f dB", m.RMSDB)
	}
	if math.Abs(m.CrestFactorDB-3.01) > 0.1 {
		t.Errorf("crest = %.2f dB", m.CrestFactorDB)
	}
	if math.Abs(m.LUFS-(-9.03)) > 0.5 {
		t.Errorf("lufs = %.2f", m.LUFS)
	}
	if m.TruePeakDB < m.PeakDB-0.01 {
		t.Errorf("true peak %.2f below sample peak %.2f", m.TruePeakDB, m.PeakDB)
	}
	if math.Abs(m.HeadroomDB+m.TruePeakDB) > 1e-9 {
		t.Errorf("headroom = %.2f", m.HeadroomDB)
	}
	if m.IsClipping {
		t.Error("unexpected clipping flag")
	}
	if m.LoudnessRange > 0.5 {
		t.Errorf("steady tone range = %.2f LU", m.LoudnessRange)
	}
}

func TestLoudnessRangeAndClipping(t *testing.T) {
	quiet := sineBuffer(1000, 0.03, 10, sr)
	loud := sineBuffer(1000, 0.3, 10, sr)
	buf := quiet.WithSamples(append(append([]float64{}, quiet.Samples...), loud.Samples...), 1)

	m, err := AnalyzeLoudness(buf)
	if err != nil {
		t.Fatal(err)
	}
	if m.LoudnessRange < 15 {
		t.Errorf("loudness range = %.1f LU, want about 20", m.LoudnessRange)
	}

	clipped := sineBuffer(1000, 1.0, 1, sr)
	m, err = AnalyzeLoudness(clipped)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsClipping {
		t.Error("full-scale sine not flagged as clipping")
	}
}

func TestClarityToneVersusNoise(t *testing.T) {
	tone, err := AnalyzeClarity(sineBuffer(440, 0.5, 2, sr))
	if err != nil {
		t.Fatal(err)
	}
	noise, err := AnalyzeClarity(noiseBuffer(0.2, 2, sr, 5))
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(tone.SpectralCentroid-440) > 100 {
		t.Errorf("tone centroid = %.0f Hz", tone.SpectralCentroid)
	}
	if noise.SpectralCentroid < 5000 {
		t.Errorf("noise centroid = %.0f Hz", noise.SpectralCentroid)
	}
	if tone.ZeroCrossingRate >= noise.ZeroCrossingRate {
		t.Errorf("zcr tone %.4f >= noise %.4f", tone.ZeroCrossingRate, noise.ZeroCrossingRate)
	}
	if tone.SNRDB <= noise.SNRDB {
		t.Errorf("snr tone %.1f <= noise %.1f", tone.SNRDB, noise.SNRDB)
	}
	if tone.ClarityScore <= noise.ClarityScore {
		t.Errorf("clarity tone %.1f <= noise %.1f", tone.ClarityScore, noise.ClarityScore)
	}
	if tone.SpectralRolloff > noise.SpectralRolloff {
		t.Errorf("rolloff tone %.0f > noise %.0f", tone.SpectralRolloff, noise.SpectralRolloff)
	}
	if noise.Grade == "" || tone.Grade == "" {
		t.Error("missing grade")
	}
}

func TestClarityTooShort(t *testing.T) {
	if _, err := AnalyzeClarity(sineBuffer(440, 0.5, 0.0005, sr)); err == nil {
		t.Error("expected error for very short buffer")
	}
}

func TestSpectralBandsAndFlatness(t *testing.T) {
	tone, err := AnalyzeSpectral(sineBuffer(1000, 0.5, 2, sr))
	if err != nil {
		t.Fatal(err)
	}
	if len(tone.Bands) != 7 {
		t.Fatalf("bands = %d", len(tone.Bands))
	}
	loudest := tone.Bands[0]
	for _, b := range tone.Bands {
		if b.EnergyDB > loudest.EnergyDB {
			loudest = b
		}
	}
	if loudest.Name != "mid" {
		t.Errorf("loudest band = %s, want mid", loudest.Name)
	}
	if !tone.IsTonal || tone.IsNoisy {
		t.Errorf("tone flatness = %.3f tonal=%t noisy=%t", tone.SpectralFlatness, tone.IsTonal, tone.IsNoisy)
	}

	noise, err := AnalyzeSpectral(noiseBuffer(0.2, 2, sr, 9))
	if err != nil {
		t.Fatal(err)
	}
	if !noise.IsNoisy || noise.IsTonal {
		t.Errorf("noise flatness = %.3f", noise.SpectralFlatness)
	}
}

func TestSpectralBandsAboveNyquist(t *testing.T) {
	m, err := AnalyzeSpectral(noiseBuffer(0.2, 2, 8000, 2))
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range m.Bands {
		if b.LowHz >= 4000 && b.EnergyDB > -120 {
			t.Errorf("band %s above Nyquist has energy %.1f", b.Name, b.EnergyDB)
		}
	}
}

func TestPerformanceEncodingQuality(t *testing.T) {
	full := noiseBuffer(0.2, 3, sr, 21)
	full.FileSize = 1_000_000
	m, err := AnalyzePerformance(full)
	if err != nil {
		t.Fatal(err)
	}
	if m.EncodingQuality != QualityExcellent {
		t.Errorf("full-band quality = %s (%s)", m.EncodingQuality, m.Details)
	}
	if want := 1_000_000 * 8 / 3.0 / 1000; math.Abs(m.BitrateKbps-want) > 1 {
		t.Errorf("bitrate = %.1f, want %.1f", m.BitrateKbps, want)
	}
	if m.HighFreqRatio < 0.3 {
		t.Errorf("high freq ratio = %.3f", m.HighFreqRatio)
	}

	band := lowpass(noiseBuffer(0.2, 3, sr, 22), 16000)
	m, err = AnalyzePerformance(band)
	if err != nil {
		t.Fatal(err)
	}
	if m.EncodingQuality == QualityExcellent {
		t.Errorf("band-limited quality = %s (max %.0f Hz)", m.EncodingQuality, m.MaxFrequency)
	}
	if m.MaxFrequency >= 18000 {
		t.Errorf("band-limited max frequency = %.0f Hz", m.MaxFrequency)
	}
}

func TestAnalyzeComprehensive(t *testing.T) {
	a, err := Analyze(sineBuffer(440, 0.3, 3, sr))
	if err != nil {
		t.Fatal(err)
	}
	if a.OverallScore < 0 || a.OverallScore > 100 {
		t.Errorf("score = %.1f", a.OverallScore)
	}
	if a.OverallGrade == "" {
		t.Error("missing grade")
	}
	if _, err := json.Marshal(a); err != nil {
		t.Errorf("report not serializable: %v", err)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	if _, err := Analyze(&types.AudioBuffer{SampleRate: sr, Channels: 1}); err == nil {
		t.Error("expected error for empty buffer")
	}
}

func TestBatchAnalyzerKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	registry := encoder.NewEncoderRegistry()

	paths := []string{
		filepath.Join(dir, "a.wav"),
		filepath.Join(dir, "broken.wav"),
		filepath.Join(dir, "c.flac"),
	}
	if err := registry.WriteFile(paths[0], "wav", sineBuffer(440, 0.3, 2, sr)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths[1], []byte("not a wave file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := registry.WriteFile(paths[2], "flac", noiseBuffer(0.1, 2, sr, 4)); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	batch := NewBatchAnalyzer(BatchConfig{Concurrency: 3, JSONOutput: true}, nil)
	batch.SetOutput(&out, nil)

	results, err := batch.AnalyzeFiles(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(paths) {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.FilePath != paths[i] {
			t.Errorf("result %d path = %s", i, r.FilePath)
		}
	}
	if results[1].Status != StatusError || results[1].Error == "" {
		t.Errorf("broken file result = %+v", results[1])
	}
	if results[0].Analysis == nil || results[2].Analysis == nil {
		t.Error("missing analysis for valid files")
	}
	if results[2].Format != "flac" {
		t.Errorf("format = %s", results[2].Format)
	}

	lines := 0
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		var r types.AnalysisResult
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		lines++
	}
	if lines != len(paths) {
		t.Errorf("json lines = %d", lines)
	}
}

func TestBatchAnalyzerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := NewBatchAnalyzer(BatchConfig{Concurrency: 1, Quiet: true}, nil)
	batch.SetOutput(&bytes.Buffer{}, nil)
	results, err := batch.AnalyzeFiles(ctx, []string{"x.wav"})
	if err == nil {
		t.Error("expected context error")
	}
	if results[0].Status != StatusError {
		t.Errorf("status = %s", results[0].Status)
	}
}
