package builder

import (
	"fmt"

	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-steer-kit/internal/backend"
	"github.com/shouni/go-steer-kit/internal/config"
)

// BuildBackendService は組み込み生成サービスを構築するのだ。
// --mock 指定時は外部モデルを一切呼ばないローカル実装に差し替わるのだ。
func BuildBackendService(cfg *config.Config) (*backend.Service, error) {
	var (
		llm      backend.LLMClient
		imageGen backend.ImageGenerator
	)

	if cfg.Options.MockLLM {
		llm = backend.MockLLM{}
		imageGen = backend.MockImageGen{}
	} else {
		openaiLLM, err := backend.NewOpenAILLM(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("LLMクライアントの初期化に失敗したのだ: %w", err)
		}
		llm = openaiLLM

		imgGen, err := backend.NewOpenAIImageGen(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("画像生成クライアントの初期化に失敗したのだ: %w", err)
		}
		imageGen = imgGen
	}

	inventor := backend.NewPromptInventor(llm, config.DefaultNumPrompts)
	featCache := cache.New(config.DefaultCacheTTL, config.DefaultCacheCleanup)
	extractor := backend.NewStyleExtractor(llm, featCache, config.DefaultKeywordsPerCategory)

	return backend.NewService(inventor, extractor, imageGen), nil
}
