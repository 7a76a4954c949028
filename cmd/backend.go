package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-steer-kit/internal/builder"
)

// backendCmd は、組み込みの生成サービスを単体で起動するのだ。
// 外部のバックエンドを用意しなくても、これ単体でエンドツーエンドに遊べるのだ。
var backendCmd = &cobra.Command{
	Use:     "backend",
	Short:   "組み込みの画像生成サービスを起動するのだ。",
	PreRunE: preRunBackendE,
	RunE:    backendCommand,
}

// preRunBackendE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunBackendE(cmd *cobra.Command, args []string) error {
	if !opts.MockLLM && os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 OPENAI_API_KEY が設定されていません。--mock を付けるか、キーを設定してほしいのだ")
	}
	return nil
}

func backendCommand(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	svc, err := builder.BuildBackendService(cfg)
	if err != nil {
		return fmt.Errorf("生成サービスの構築に失敗したのだ: %w", err)
	}

	addr := ":" + cfg.BackendPort
	slog.Info("組み込み生成サービスを起動するのだ！",
		"addr", addr,
		"mock", opts.MockLLM,
		"model", cfg.OpenAIModel)

	if err := http.ListenAndServe(addr, svc.Handler()); err != nil {
		return fmt.Errorf("サーバーの実行中にエラーが発生したのだ: %w", err)
	}
	return nil
}
