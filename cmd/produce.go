package cmd

import (
	"fmt"

	"audio-mastering-engine/internal/producer"
	"audio-mastering-engine/internal/report"

	"github.com/spf13/cobra"
)

var (
	jobVocals      string
	jobMusic       string
	jobSong        string
	jobGenre       string
	jobOutDir      string
	jobName        string
	jobEnhance     bool
	skipValidation bool
	sourceDirs     []string
)

var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "完整制作流程：验证、增强、混音或拼接、母带、导出和报告",
	Long: `一次完成整首歌曲的制作。

使用 --vocals/--music 混合人声与伴奏，或使用 --song 指定段落清单 (格式同 assemble 命令)。
人声或伴奏路径不存在时，依次在 --source-dir 指定的目录中按名称查找。
输出目录中生成 <name>.<ext>、<name>-preview.wav、<name>-radio-edit.wav 和 <name>-report.json。`,
	Args: cobra.NoArgs,
	RunE: runProduce,
}

func init() {
	f := produceCmd.Flags()
	f.StringVar(&jobVocals, "vocals", "", "人声文件或名称")
	f.StringVar(&jobMusic, "music", "", "伴奏文件或名称，可省略")
	f.StringVar(&jobSong, "song", "", "段落清单 (TOML)")
	f.StringVarP(&jobGenre, "genre", "g", "", "曲风")
	f.StringVarP(&jobOutDir, "out", "o", "", "输出目录")
	f.StringVar(&jobName, "name", "master", "输出文件名前缀")
	f.BoolVar(&jobEnhance, "enhance", false, "混音前对人声执行增强")
	f.BoolVar(&skipValidation, "skip-validation", false, "验证不通过时仍继续")
	f.StringSliceVar(&sourceDirs, "source-dir", nil, "按顺序查找音频的目录")
	produceCmd.MarkFlagRequired("out")
	produceCmd.MarkFlagsMutuallyExclusive("song", "vocals")
	produceCmd.MarkFlagsOneRequired("song", "vocals")
}

func runProduce(cmd *cobra.Command, args []string) error {
	job := producer.Job{
		Genre:          jobGenre,
		OutputDir:      jobOutDir,
		Name:           jobName,
		Enhance:        jobEnhance,
		SkipValidation: skipValidation,
	}

	var err error
	if jobSong != "" {
		if job.Song, err = loadManifest(jobSong); err != nil {
			return err
		}
	} else {
		if job.Vocals, err = resolveAudio(cmd.Context(), jobVocals, sourceDirs); err != nil {
			return err
		}
		if jobMusic != "" {
			if job.Music, err = resolveAudio(cmd.Context(), jobMusic, sourceDirs); err != nil {
				return err
			}
		}
	}

	rep, produceErr := producer.New(cfg, logger).Produce(cmd.Context(), job)
	if rep == nil {
		return produceErr
	}
	if err := output(cmd, rep, func(p *report.Printer) {
		if rep.Enhancement != nil {
			p.Enhancement(rep.Enhancement)
		}
		p.Outputs(fmt.Sprintf("制作完成 [%s]: %s, %.1f LUFS", rep.JobID, rep.Genre, rep.Mastering.LUFS), rep.Outputs)
		p.Failures(rep.Failures)
	}); err != nil {
		return err
	}
	return produceErr
}
