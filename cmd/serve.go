package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/shouni/go-steer-kit/internal/builder"
	"github.com/shouni/go-steer-kit/internal/server"
)

// serveCmd は、操縦ループのHTTP境界を起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "操縦ループのHTTP APIを起動するのだ。",
	Long: `説明文の設定・画像/キーワードの選択トグル・ラウンド投入・状態取得を
JSON APIとして公開するのだ。生成サービスには --backend-url で接続するのだよ。`,
	RunE: serveCommand,
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	appCtx := builder.NewAppContext(cfg)

	srv, err := server.New(appCtx.Controller, appCtx.SegmentCache)
	if err != nil {
		return fmt.Errorf("サーバーの構築に失敗したのだ: %w", err)
	}

	addr := ":" + cfg.Port
	slog.Info("操縦ループを起動するのだ！",
		"addr", addr,
		"backend_url", cfg.BackendURL,
		"fanout", opts.Fanout)

	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		return fmt.Errorf("サーバーの実行中にエラーが発生したのだ: %w", err)
	}
	return nil
}
