package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-steer-kit/internal/builder"
	"github.com/shouni/go-steer-kit/pkg/annotate"
)

// roundCmd は、説明文から1ラウンドだけ実行して結果を標準出力に吐くのだ。
var roundCmd = &cobra.Command{
	Use:   "round",
	Short: "1ラウンド実行して注釈付きの結果を表示するのだ。",
	RunE:  roundCommand,
}

func init() {
	roundCmd.Flags().StringVarP(&opts.Description, "description", "d", "", "生成したい画像の説明文なのだ。")
}

func roundCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if strings.TrimSpace(opts.Description) == "" {
		return fmt.Errorf("--description を指定してほしいのだ")
	}

	cfg := loadConfig()
	appCtx := builder.NewAppContext(cfg)
	appCtx.Controller.SetDescription(opts.Description)

	slog.Info("ラウンドを投入するのだ", "fanout", opts.Fanout, "backend_url", cfg.BackendURL)

	committed, err := appCtx.Controller.Submit(ctx)
	if err != nil {
		return fmt.Errorf("ラウンドの実行に失敗したのだ: %w", err)
	}

	out := cmd.OutOrStdout()
	for i, item := range committed.Results {
		segs := annotate.Resolve(item.Prompt, annotate.Scan(item.Prompt, committed.Features[item.Prompt]))
		fmt.Fprintf(out, "%2d. %s\n    %s\n", i+1, renderSegments(segs), item.URL)
	}
	return nil
}

// renderSegments は注釈付き区間を [キーワード|カテゴリ] の書式で描くのだ。
func renderSegments(segs []annotate.Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		if seg.Annotated {
			fmt.Fprintf(&b, "[%s|%s]", seg.Keyword, seg.Category)
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
