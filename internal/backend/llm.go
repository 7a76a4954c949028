package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// LLMClient は、プロンプト発明と特徴抽出が使う言語モデルへの窓口なのだ。
type LLMClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// LLMFunc は関数1つで LLMClient を満たすアダプタなのだ。テストで重宝するのだよ。
type LLMFunc func(ctx context.Context, system, user string) (string, error)

func (f LLMFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// OpenAILLM は公式 openai-go SDK（chat completions）による LLMClient 実装なのだ。
type OpenAILLM struct {
	Model string
	Opts  []option.RequestOption
}

// NewOpenAILLM はAPIキーとモデル名からクライアントを構築するのだ。
func NewOpenAILLM(apiKey, model string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY が設定されていないのだ")
	}
	if model == "" {
		return nil, errors.New("モデル名が空なのだ")
	}
	return &OpenAILLM{
		Model: model,
		Opts:  []option.RequestOption{option.WithAPIKey(apiKey)},
	}, nil
}

// Complete はシステム指示とユーザー入力を1往復の chat completion にかけるのだ。
func (o *OpenAILLM) Complete(ctx context.Context, system, user string) (string, error) {
	client := openai.NewClient(o.Opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion に失敗したのだ: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("モデルの応答が空なのだ")
	}
	return resp.Choices[0].Message.Content, nil
}

// MockLLM は外部モデルを呼ばないローカルデバッグ用の実装なのだ。
// プロンプト発明の依頼には決め打ちのバリエーションを、特徴抽出の依頼には
// 単純な語彙ベースの特徴を返すのだ。
type MockLLM struct{}

var mockStyles = []string{
	"impressionist painting",
	"minimalist digital art",
	"vibrant watercolor",
	"cinematic photograph",
	"retro pixel art",
	"soft pastel illustration",
}

func (m MockLLM) Complete(_ context.Context, system, user string) (string, error) {
	if strings.Contains(system, "特徴を抽出") {
		return m.mockFeatures(user)
	}
	return m.mockPrompts(user)
}

func (m MockLLM) mockPrompts(user string) (string, error) {
	subject := strings.TrimSpace(user)
	if i := strings.LastIndex(subject, "\n"); i >= 0 {
		subject = strings.TrimSpace(subject[i+1:])
	}
	prompts := make([]string, len(mockStyles))
	for i, style := range mockStyles {
		prompts[i] = fmt.Sprintf("A %s of %s, variation %d", style, subject, i+1)
	}
	out, err := json.Marshal(prompts)
	return string(out), err
}

func (m MockLLM) mockFeatures(user string) (string, error) {
	features := map[string]map[string][]string{}
	for _, line := range strings.Split(user, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		words := strings.Fields(line)
		style := []string{}
		if len(words) > 1 {
			style = append(style, strings.ToLower(words[1]))
		}
		features[line] = map[string][]string{
			"style":   style,
			"subject": {"subject"},
		}
	}
	out, err := json.Marshal(features)
	return string(out), err
}
