package builder

import (
	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-steer-kit/internal/config"
	"github.com/shouni/go-steer-kit/pkg/generation"
	"github.com/shouni/go-steer-kit/pkg/round"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config       *config.Config    // Configは、環境変数から読み込まれたグローバルな設定です。
	Options      config.Options    // Optionsは、コマンドラインから渡された実行時の設定です。
	Controller   *round.Controller // Controllerは、生成ラウンドの状態機械です。
	SegmentCache *cache.Cache      // SegmentCacheは、プロンプト本文ごとの区間分割結果のTTLキャッシュです。
}

// NewAppContext は生成クライアントとラウンドコントローラを束ねて返すのだ。
func NewAppContext(cfg *config.Config) *AppContext {
	backendURL := cfg.Options.BackendURL
	if backendURL == "" {
		backendURL = cfg.BackendURL
	}

	client := generation.NewClient(backendURL, cfg.Options.HTTPTimeout, config.DefaultRetryLimit)
	ctrl := round.New(client, cfg.Options.Fanout)

	return &AppContext{
		Config:       cfg,
		Options:      cfg.Options,
		Controller:   ctrl,
		SegmentCache: cache.New(config.DefaultCacheTTL, config.DefaultCacheCleanup),
	}
}
