package backend

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ImageGenerator は、1つのプロンプトから画像URLを1枚分得る窓口なのだ。
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIImageGen は openai-go の Images API による実装なのだ。
type OpenAIImageGen struct {
	Model string
	Opts  []option.RequestOption
}

// NewOpenAIImageGen は画像生成クライアントを構築するのだ。
func NewOpenAIImageGen(apiKey string) (*OpenAIImageGen, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY が設定されていないのだ")
	}
	return &OpenAIImageGen{
		Model: string(openai.ImageModelDallE3),
		Opts:  []option.RequestOption{option.WithAPIKey(apiKey)},
	}, nil
}

// Generate はプロンプト1件の画像を生成してURLを返すのだ。
func (g *OpenAIImageGen) Generate(ctx context.Context, prompt string) (string, error) {
	client := openai.NewClient(g.Opts...)

	resp, err := client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(g.Model),
		N:      openai.Int(1),
	})
	if err != nil {
		return "", fmt.Errorf("画像生成に失敗したのだ: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("画像URLが返ってこなかったのだ")
	}
	return resp.Data[0].URL, nil
}

// MockImageGen は外部APIを呼ばず、プロンプトから決定論的なURLを作る実装なのだ。
type MockImageGen struct{}

func (MockImageGen) Generate(_ context.Context, prompt string) (string, error) {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("https://images.example.invalid/%x.png", sum[:8]), nil
}
