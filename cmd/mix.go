package cmd

import (
	"fmt"
	"path/filepath"

	"audio-mastering-engine/internal/mixer"
	"audio-mastering-engine/internal/report"
	"audio-mastering-engine/internal/types"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

var (
	vocalsGain  float64
	musicGain   float64
	crossfadeMs float64

	manifestCrossfadeMs float64
)

var mixCmd = &cobra.Command{
	Use:   "mix <vocals> <music> <output>",
	Short: "混合人声和伴奏，输出时长与人声相同",
	Args:  cobra.ExactArgs(3),
	RunE:  runMix,
}

var assembleCmd = &cobra.Command{
	Use:   "assemble <manifest.toml> <output>",
	Short: "按清单把歌曲段落渲染并拼接为一轨",
	Long: `清单为 TOML 格式，段落中的路径相对于清单所在目录：

  crossfade_ms = 100

  [[sections]]
  type = "intro"
  order = 0
  music = "intro_music.wav"
  duration = 8.0

  [[sections]]
  type = "verse"
  order = 1
  vocals = "verse_vocals.wav"
  music = "verse_music.wav"
  duration = 20.0`,
	Args: cobra.ExactArgs(2),
	RunE: runAssemble,
}

func init() {
	mixCmd.Flags().Float64Var(&vocalsGain, "vocals-gain", 0, "人声增益 (dB)")
	mixCmd.Flags().Float64Var(&musicGain, "music-gain", -3, "伴奏增益 (dB)")
	mixCmd.Flags().Float64Var(&crossfadeMs, "crossfade", 50, "交叉淡化时长 (ms)")
	assembleCmd.Flags().Float64Var(&manifestCrossfadeMs, "crossfade", 0, "覆盖清单中的交叉淡化时长 (ms)")
}

func runMix(cmd *cobra.Command, args []string) error {
	vocals, err := loadAudio(args[0])
	if err != nil {
		return err
	}
	music, err := loadAudio(args[1])
	if err != nil {
		return err
	}

	m := mixer.NewMixer(cfg.Mix, logger)
	spec := m.Spec(vocals, music)
	flags := cmd.Flags()
	if flags.Changed("vocals-gain") {
		spec.VocalsGainDB = vocalsGain
	}
	if flags.Changed("music-gain") {
		spec.MusicGainDB = musicGain
	}
	if flags.Changed("crossfade") {
		spec.CrossfadeMs = crossfadeMs
	}

	mixed, err := m.Mix(spec)
	if err != nil {
		return err
	}
	if err := writeAudio(args[2], mixed); err != nil {
		return err
	}

	result := map[string]string{"mix": args[2]}
	return output(cmd, result, func(p *report.Printer) {
		p.Outputs(fmt.Sprintf("混音完成 (%.2f 秒)", mixed.Duration()), result)
	})
}

// manifest 段落拼接清单
type manifest struct {
	CrossfadeMs float64 `toml:"crossfade_ms"`
	Sections    []struct {
		Type     string  `toml:"type"`
		Order    int     `toml:"order"`
		Vocals   string  `toml:"vocals"`
		Music    string  `toml:"music"`
		Duration float64 `toml:"duration"`
	} `toml:"sections"`
}

// loadManifest 读取清单并解码其中引用的音频
func loadManifest(path string) (*types.StructuredSong, error) {
	var m manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析清单失败: %v", types.ErrInvalidInput, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: 清单包含未知字段: %v", types.ErrInvalidInput, undecoded)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	song := &types.StructuredSong{CrossfadeMs: m.CrossfadeMs}
	for _, s := range m.Sections {
		section := types.SongSection{
			Type:            types.SectionType(s.Type),
			Order:           s.Order,
			DurationSeconds: s.Duration,
		}
		if s.Vocals != "" {
			if section.Vocals, err = loadAudio(resolve(s.Vocals)); err != nil {
				return nil, err
			}
		}
		if s.Music != "" {
			if section.Music, err = loadAudio(resolve(s.Music)); err != nil {
				return nil, err
			}
		}
		song.Sections = append(song.Sections, section)
	}
	return song, nil
}

func runAssemble(cmd *cobra.Command, args []string) error {
	song, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("crossfade") {
		song.CrossfadeMs = manifestCrossfadeMs
	}

	assembled, err := mixer.NewAssembler(mixer.NewMixer(cfg.Mix, logger), logger).Assemble(*song)
	if err != nil {
		return err
	}
	if err := writeAudio(args[1], assembled); err != nil {
		return err
	}

	result := map[string]string{"song": args[1]}
	return output(cmd, result, func(p *report.Printer) {
		p.Outputs(fmt.Sprintf("拼接完成 (%d 个段落, %.2f 秒)", len(song.Sections), assembled.Duration()), result)
	})
}
