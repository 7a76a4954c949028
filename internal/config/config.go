package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultBackendURL  = "http://localhost:8000"
	DefaultPort        = "8080"
	DefaultBackendPort = "8000"
	DefaultFanout      = 1
	DefaultHTTPTimeout = 30 * time.Second
	DefaultRetryLimit  = 45 * time.Second
	DefaultOpenAIModel = "gpt-4o-mini"

	// 組み込みバックエンドの生成パラメータなのだ
	DefaultNumPrompts          = 6
	DefaultKeywordsPerCategory = 5
	DefaultImageRateLimit      = 2 * time.Second

	// 区間分割と特徴抽出のキャッシュ設定なのだ
	DefaultCacheTTL     = 30 * time.Minute
	DefaultCacheCleanup = 1 * time.Hour
)

// Config はアプリケーション全体の環境設定（接続先やAPIキー）を保持する構造体なのだ。
type Config struct {
	BackendURL   string
	Port         string
	BackendPort  string
	OpenAIAPIKey string
	OpenAIModel  string

	Options Options
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		BackendURL:   envutil.GetEnv("STEER_BACKEND_URL", DefaultBackendURL),
		Port:         envutil.GetEnv("STEER_PORT", DefaultPort),
		BackendPort:  envutil.GetEnv("STEER_BACKEND_PORT", DefaultBackendPort),
		OpenAIAPIKey: envutil.GetEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  envutil.GetEnv("OPENAI_MODEL", DefaultOpenAIModel),
	}
	return cfg
}

// Options は CLI フラグから渡される実行時のパラメータなのだ。
type Options struct {
	// ラウンド関連
	Description string // --description
	Fanout      int    // --fanout: 同一ペイロードの並行リクエスト数

	// 接続関連
	BackendURL  string        // --backend-url
	HTTPTimeout time.Duration // --http-timeout

	// 組み込み生成サービス関連
	MockLLM bool // --mock: 外部モデルを呼ばないローカル実装を使う
}
