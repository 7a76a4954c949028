package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// PromptInventor は、説明文とこれまでの好みから多様な画像生成プロンプトを
// 発明させる役なのだ。好みがまだ無ければ初回モード、あれば洗練モードになるのだ。
type PromptInventor struct {
	llm        LLMClient
	numPrompts int
}

// NewPromptInventor はインベンタを構築するのだ。
func NewPromptInventor(llm LLMClient, numPrompts int) *PromptInventor {
	if numPrompts < 1 {
		numPrompts = 1
	}
	return &PromptInventor{llm: llm, numPrompts: numPrompts}
}

const inventorSystemBase = `あなたは画像生成プロンプトの専門家なのだ。
ユーザーの説明文から、画風・構図・色彩の異なる多様で具体的な英語の
画像生成プロンプトを発明してほしいのだ。
出力は必ずJSONの文字列配列だけにするのだ。説明文やコードフェンスは不要なのだ。`

// Invent はプロンプトを numPrompts 件発明するのだ。
// likedPrompts が空なら初回の多様性重視、あれば in-context 学習で洗練するのだ。
func (p *PromptInventor) Invent(ctx context.Context, description string, likedPrompts, styleKeywords []string) ([]string, error) {
	system := p.buildSystem(likedPrompts, styleKeywords)

	raw, err := p.llm.Complete(ctx, system, description)
	if err != nil {
		return nil, fmt.Errorf("プロンプトの発明に失敗したのだ: %w", err)
	}

	prompts := parsePromptList(raw)
	if len(prompts) == 0 {
		return nil, fmt.Errorf("モデルの応答からプロンプトを1件も取り出せなかったのだ")
	}
	if len(prompts) > p.numPrompts {
		prompts = prompts[:p.numPrompts]
	}
	return prompts, nil
}

// buildSystem はモードに応じたシステム指示を組み立てるのだ。
func (p *PromptInventor) buildSystem(likedPrompts, styleKeywords []string) string {
	var b strings.Builder
	b.WriteString(inventorSystemBase)
	fmt.Fprintf(&b, "\nちょうど %d 件生成するのだ。", p.numPrompts)

	if len(likedPrompts) == 0 && len(styleKeywords) == 0 {
		b.WriteString("\n初回なので、できるだけ方向性の異なるバリエーションを広く出すのだ。")
		return b.String()
	}

	if len(likedPrompts) > 0 {
		b.WriteString("\nユーザーは過去に次のプロンプトを気に入ったのだ:\n")
		for i, liked := range likedPrompts {
			fmt.Fprintf(&b, "%d. %q\n", i+1, liked)
		}
	}
	if len(styleKeywords) > 0 {
		fmt.Fprintf(&b, "\nユーザーが好むスタイルキーワード: %s\n", strings.Join(styleKeywords, ", "))
	}
	b.WriteString("これらの好みを反映しつつ、単純な複製にはならないように洗練するのだ。")
	return b.String()
}

var listItemRe = regexp.MustCompile(`^\s*\d+[.)]\s*`)

// parsePromptList はモデルの応答からプロンプト列を取り出すのだ。
// JSON配列を第一候補とし、ダメなら行分割（番号書式の除去つき）に落ちるのだ。
func parsePromptList(raw string) []string {
	cleaned := stripCodeFence(raw)

	var prompts []string
	if err := json.Unmarshal([]byte(cleaned), &prompts); err == nil {
		return compactStrings(prompts)
	}

	var fallback []string
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(listItemRe.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"`)
		if line != "" {
			fallback = append(fallback, line)
		}
	}
	return fallback
}

// stripCodeFence は ```json ... ``` のようなフェンスを剥がすのだ。
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func compactStrings(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
