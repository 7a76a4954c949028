package generation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shouni/go-steer-kit/pkg/domain"
)

// バックエンドは2種類の成功形式を返してくるのだ:
//  1. 結合形式:   prompts が [{"text", "features"}] の配列
//  2. 索引形式:   prompts が ["text"] の平坦な配列で、extracted_features が
//     位置合わせされた添字キーのマップ
//
// コアのロジックに応答形式で分岐させないため、ここで両方を
// 「プロンプト本文 → FeatureSet」の正準ルックアップに正規化するのだ。
type wireResponse struct {
	Results           []domain.ResultItem          `json:"results"`
	Prompts           json.RawMessage              `json:"prompts"`
	ExtractedFeatures map[string]domain.FeatureSet `json:"extracted_features"`
}

// annotatedPrompt は結合形式の prompts 要素なのだ。
type annotatedPrompt struct {
	Text     string            `json:"text"`
	Features domain.FeatureSet `json:"features"`
}

// normalizeResponse は応答ボディを検証し、正準形へ変換するのだ。
// results か prompts に相当するものが欠けていれば ErrMalformedResponse なのだ。
func normalizeResponse(body []byte) (*domain.RoundPayload, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("応答のデコードに失敗したのだ (%v): %w", err, ErrMalformedResponse)
	}
	if wire.Results == nil {
		return nil, fmt.Errorf("応答に results が無いのだ: %w", ErrMalformedResponse)
	}
	if len(wire.Prompts) == 0 {
		return nil, fmt.Errorf("応答に prompts が無いのだ: %w", ErrMalformedResponse)
	}

	features, err := normalizeFeatures(wire)
	if err != nil {
		return nil, err
	}

	return &domain.RoundPayload{Results: wire.Results, Features: features}, nil
}

// normalizeFeatures は prompts の形式を見分けてルックアップを構築するのだ。
// 同一プロンプト本文の衝突は後勝ち（last-write-wins）なのだ。
func normalizeFeatures(wire wireResponse) (map[string]domain.FeatureSet, error) {
	// まず結合形式を試すのだ
	var combined []annotatedPrompt
	if err := json.Unmarshal(wire.Prompts, &combined); err == nil {
		features := make(map[string]domain.FeatureSet, len(combined))
		for _, p := range combined {
			if p.Text == "" {
				continue
			}
			features[p.Text] = p.Features
		}
		return features, nil
	}

	// 次に索引形式（平坦なプロンプト配列 + 添字キーのマップ）を試すのだ
	var flat []string
	if err := json.Unmarshal(wire.Prompts, &flat); err != nil {
		return nil, fmt.Errorf("prompts がどちらの形式でも解釈できないのだ (%v): %w", err, ErrMalformedResponse)
	}

	features := make(map[string]domain.FeatureSet, len(flat))
	for _, text := range flat {
		features[text] = nil
	}
	for key, fs := range wire.ExtractedFeatures {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(flat) {
			slog.Warn("extracted_features の添字が不正なのでスキップするのだ", "key", key)
			continue
		}
		features[flat[idx]] = fs
	}
	return features, nil
}
