package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-steer-kit/pkg/domain"
)

// StyleExtractor は、生成済みプロンプト群からカテゴリ別のスタイルキーワードを
// 抽出させる役なのだ。同じプロンプト本文の再抽出はTTLキャッシュで省くのだ。
type StyleExtractor struct {
	llm         LLMClient
	featCache   *cache.Cache
	perCategory int
}

// NewStyleExtractor は抽出器を構築するのだ。
func NewStyleExtractor(llm LLMClient, featCache *cache.Cache, perCategory int) *StyleExtractor {
	if perCategory < 1 {
		perCategory = 1
	}
	return &StyleExtractor{llm: llm, featCache: featCache, perCategory: perCategory}
}

// extractorSystem の in-context 例は、期待する出力形式をモデルに固定させるためのものなのだ。
const extractorSystem = `あなたは画像生成プロンプトの分析者なのだ。各プロンプトから特徴を抽出してほしいのだ。
カテゴリは style / subject / action / objects / setting / colors / time / mood / details、
さらにプロンプトにとって重要なものがあれば追加してよいのだ。

例:
Prompt: "A vibrant impressionist painting of a cat playing with a red ball in a sunlit garden, with delicate brushstrokes and warm colors"
Extracted: {"style": ["impressionist", "vibrant", "delicate brushstrokes"], "subject": ["cat"], "action": ["playing"], "objects": ["red ball"], "setting": ["sunlit garden"], "colors": ["warm colors"]}

Prompt: "A minimalist digital art of a futuristic cityscape at night, with neon lights and flying cars, rendered in cool blue tones"
Extracted: {"style": ["minimalist", "digital art", "futuristic"], "subject": ["cityscape"], "time": ["night"], "objects": ["neon lights", "flying cars"], "colors": ["cool blue tones"]}

キーワードは必ずプロンプト本文に現れる語句から選ぶのだ。
出力は「プロンプト本文 → {カテゴリ → キーワード配列}」のJSONオブジェクトだけにするのだ。
コードフェンスや説明文は不要なのだ。`

// Extract は各プロンプトの特徴を抽出し、本文キーのルックアップで返すのだ。
func (e *StyleExtractor) Extract(ctx context.Context, prompts []string) (map[string]domain.FeatureSet, error) {
	features := make(map[string]domain.FeatureSet, len(prompts))

	// まずキャッシュ済みの分を回収するのだ
	var pending []string
	for _, p := range prompts {
		if cached, ok := e.featCache.Get(p); ok {
			features[p] = cached.(domain.FeatureSet)
			continue
		}
		pending = append(pending, p)
	}
	if len(pending) == 0 {
		return features, nil
	}

	system := fmt.Sprintf("%s\n各カテゴリ最大 %d 件までなのだ。", extractorSystem, e.perCategory)
	raw, err := e.llm.Complete(ctx, system, strings.Join(pending, "\n"))
	if err != nil {
		return nil, fmt.Errorf("特徴抽出に失敗したのだ: %w", err)
	}

	var extracted map[string]domain.FeatureSet
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &extracted); err != nil {
		return nil, fmt.Errorf("特徴抽出の応答をデコードできなかったのだ: %w", err)
	}

	for _, p := range pending {
		fs, ok := extracted[p]
		if !ok {
			// モデルが取りこぼしたプロンプトは特徴なしとして扱うのだ
			slog.Warn("特徴抽出の応答にプロンプトが見つからないのだ", "prompt", p)
			continue
		}
		features[p] = clampFeatures(fs, e.perCategory)
		e.featCache.Set(p, features[p], cache.DefaultExpiration)
	}
	return features, nil
}

// clampFeatures はカテゴリごとの件数上限を適用するのだ。
func clampFeatures(fs domain.FeatureSet, limit int) domain.FeatureSet {
	clamped := make(domain.FeatureSet, len(fs))
	for category, keywords := range fs {
		if len(keywords) > limit {
			keywords = keywords[:limit]
		}
		clamped[category] = keywords
	}
	return clamped
}
