package source

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"audio-mastering-engine/internal/encoder"
	"audio-mastering-engine/internal/types"
)

func tone(secs float64) *types.AudioBuffer {
	buf := types.NewAudioBuffer(int(secs*22050), 22050, 1)
	for i := range buf.Samples {
		buf.Samples[i] = 0.3 * math.Sin(2*math.Pi*440*float64(i)/22050)
	}
	return buf
}

func failing(name string) Provider {
	return ProviderFunc{ID: name, Fn: func(context.Context, string) (*types.AudioBuffer, error) {
		return nil, errors.New("backend unavailable")
	}}
}

func TestChainFallsBackInOrder(t *testing.T) {
	var calls []string
	record := func(name string, buf *types.AudioBuffer, err error) Provider {
		return ProviderFunc{ID: name, Fn: func(context.Context, string) (*types.AudioBuffer, error) {
			calls = append(calls, name)
			return buf, err
		}}
	}

	chain := NewChain(nil,
		record("primary", nil, errors.New("timeout")),
		record("empty", &types.AudioBuffer{SampleRate: 22050, Channels: 1}, nil),
		record("secondary", tone(0.5), nil),
		record("never", tone(0.5), nil),
	)

	buf, name, err := chain.Fetch(context.Background(), "verse-1")
	if err != nil {
		t.Fatal(err)
	}
	if name != "secondary" || buf.IsEmpty() {
		t.Errorf("provider = %s", name)
	}
	if len(calls) != 3 || calls[2] != "secondary" {
		t.Errorf("calls = %v", calls)
	}
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(nil, failing("a"), failing("b"))
	_, _, err := chain.Fetch(context.Background(), "x")
	if !errors.Is(err, types.ErrProcessingFailed) {
		t.Fatalf("err = %v", err)
	}
	for _, name := range []string{"a:", "b:"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestChainNoProviders(t *testing.T) {
	if _, _, err := NewChain(nil).Fetch(context.Background(), "x"); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
}

func TestChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewChain(nil, failing("a")).Fetch(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	secs := 0.25
	if err := encoder.NewEncoderRegistry().WriteFile(filepath.Join(dir, "vocals.flac"), "flac", tone(secs)); err != nil {
		t.Fatal(err)
	}
	p := NewFileProvider(dir)

	buf, err := p.Fetch(context.Background(), "vocals")
	if err != nil {
		t.Fatal(err)
	}
	if buf.SampleRate != 22050 || buf.Frames() != int(secs*22050) {
		t.Errorf("decoded %d Hz / %d frames", buf.SampleRate, buf.Frames())
	}

	if _, err := p.Fetch(context.Background(), "vocals.flac"); err != nil {
		t.Errorf("explicit extension: %v", err)
	}
	if _, err := p.Fetch(context.Background(), "missing"); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("missing file err = %v", err)
	}
}
