package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audio-mastering-engine/internal/decoder"
	"audio-mastering-engine/internal/types"
)

func testTone(secs float64, sampleRate, channels int) *types.AudioBuffer {
	frames := int(secs * float64(sampleRate))
	buf := types.NewAudioBuffer(frames, sampleRate, channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			freq := 440.0 * float64(ch+1)
			buf.Samples[i*channels+ch] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		}
	}
	return buf
}

func TestLosslessRoundTrip(t *testing.T) {
	registry := NewEncoderRegistry()
	decoders := decoder.NewDecoderRegistry()
	src := testTone(0.5, 44100, 2)

	tests := []struct {
		format string
		file   string
		tol    float64
	}{
		{"wav", "out.wav", 1.0 / 32768},
		{"wav24", "out24.wav", 1.0 / 8388608},
		{"flac", "out.flac", 1.0 / 32768},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := registry.WriteFile(path, tt.format, src); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			got, err := decoders.LoadBuffer(path)
			if err != nil {
				t.Fatalf("LoadBuffer: %v", err)
			}
			if got.SampleRate != src.SampleRate || got.Channels != src.Channels {
				t.Fatalf("format = %d Hz / %d ch, want %d / %d", got.SampleRate, got.Channels, src.SampleRate, src.Channels)
			}
			if len(got.Samples) != len(src.Samples) {
				t.Fatalf("len = %d, want %d", len(got.Samples), len(src.Samples))
			}
			for i := range src.Samples {
				if d := math.Abs(got.Samples[i] - src.Samples[i]); d > tt.tol {
					t.Fatalf("sample %d differs by %g", i, d)
				}
			}
		})
	}
}

func TestFLACEncodeLeavesFileOpen(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "open.flac"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := (&FLACEncoder{BitDepth: 16}).Encode(f, testTone(0.1, 44100, 2)); err != nil {
		t.Fatal(err)
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("file closed by encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpusExportWritesOggStream(t *testing.T) {
	registry := NewEncoderRegistry()
	enc, err := registry.Get("opus")
	if err != nil {
		t.Fatal(err)
	}
	if enc.Lossless() {
		t.Error("opus reported as lossless")
	}

	path := filepath.Join(t.TempDir(), "out.opus")
	if err := registry.WriteFile(path, "opus", testTone(0.3, 44100, 2)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("OggS")) {
		t.Errorf("missing Ogg capture pattern")
	}
}

func TestOpusEndGranuleMatchesLength(t *testing.T) {
	src := testTone(0.31, 48000, 1)
	if src.Frames()%960 == 0 {
		t.Fatal("length must end in a partial frame")
	}
	path := filepath.Join(t.TempDir(), "len.opus")
	if err := NewEncoderRegistry().WriteFile(path, "opus", src); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// 最后一页为 EOS 空页，其 granule 即总采样数
	last := bytes.LastIndex(data, []byte("OggS"))
	if last < 0 || last+14 > len(data) {
		t.Fatal("no Ogg page found")
	}
	granule := binary.LittleEndian.Uint64(data[last+6 : last+14])
	if granule != uint64(src.Frames()) {
		t.Errorf("end granule = %d, want %d", granule, src.Frames())
	}
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	registry := NewEncoderRegistry()
	if err := registry.WriteFile(filepath.Join(dir, "a.wav"), "wav", testTone(0.1, 22050, 1)); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestUnknownFormat(t *testing.T) {
	registry := NewEncoderRegistry()
	err := registry.WriteFile(filepath.Join(t.TempDir(), "a.mp3"), "mp3", testTone(0.1, 22050, 1))
	if !errors.Is(err, types.ErrExportFailed) {
		t.Errorf("err = %v, want ErrExportFailed", err)
	}
}

func TestOutputPath(t *testing.T) {
	registry := NewEncoderRegistry()
	tests := map[string]string{
		"wav":   "/x/song.wav",
		"wav24": "/x/song-wav24.wav",
		"flac":  "/x/song.flac",
		"opus":  "/x/song.opus",
	}
	for format, want := range tests {
		enc, err := registry.Get(format)
		if err != nil {
			t.Fatal(err)
		}
		if got := OutputPath("/x/song", enc); got != want {
			t.Errorf("OutputPath(%s) = %s, want %s", format, got, want)
		}
	}
}

func TestQuantizeClamps(t *testing.T) {
	if got := quantize(1.5, 16); got != 32767 {
		t.Errorf("quantize(1.5) = %d", got)
	}
	if got := quantize(-1.5, 16); got != -32768 {
		t.Errorf("quantize(-1.5) = %d", got)
	}
}
