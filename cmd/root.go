package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-steer-kit/internal/config"
)

var opts config.Options

var rootCmd = &cobra.Command{
	Use:   "steer-kit",
	Short: "フィードバックで画像生成を反復的に操縦するエンジンなのだ。",
	Long: `説明文から画像のバッチを生成し、気に入った画像やスタイルキーワードを
選択して再投入することで、次のバッチを好みに寄せていくエンジンなのだ。`,
	SilenceUsage: true,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags() {
	rootCmd.PersistentFlags().StringVarP(&opts.BackendURL, "backend-url", "b", "", "生成サービスのベースURLなのだ（未指定なら環境変数）。")
	rootCmd.PersistentFlags().IntVarP(&opts.Fanout, "fanout", "n", config.DefaultFanout, "同一ペイロードを並行送信する件数なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "1リクエストあたりのタイムアウトなのだ。")
	rootCmd.PersistentFlags().BoolVar(&opts.MockLLM, "mock", false, "組み込みバックエンドで外部モデルを呼ばないのだ。")
}

// loadConfig は環境変数とフラグをマージした設定を返すのだ。
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.Options = opts
	return cfg
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags()
	rootCmd.AddCommand(serveCmd, roundCmd, backendCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
