package backend

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestPromptInventor_Invent(t *testing.T) {
	t.Run("JSON配列の応答をそのまま使うのだ", func(t *testing.T) {
		llm := LLMFunc(func(_ context.Context, system, user string) (string, error) {
			if user != "a cat" {
				t.Errorf("説明文がそのまま渡るはずなのだ: %q", user)
			}
			return `["prompt one", "prompt two"]`, nil
		})

		prompts, err := NewPromptInventor(llm, 6).Invent(context.Background(), "a cat", nil, nil)
		if err != nil {
			t.Fatalf("エラーは不要なのだ: %v", err)
		}
		if !reflect.DeepEqual(prompts, []string{"prompt one", "prompt two"}) {
			t.Errorf("期待と違うのだ: %v", prompts)
		}
	})

	t.Run("コードフェンス付きでも解釈できるのだ", func(t *testing.T) {
		llm := LLMFunc(func(_ context.Context, _, _ string) (string, error) {
			return "```json\n[\"fenced prompt\"]\n```", nil
		})

		prompts, err := NewPromptInventor(llm, 6).Invent(context.Background(), "a cat", nil, nil)
		if err != nil {
			t.Fatalf("エラーは不要なのだ: %v", err)
		}
		if !reflect.DeepEqual(prompts, []string{"fenced prompt"}) {
			t.Errorf("期待と違うのだ: %v", prompts)
		}
	})

	t.Run("JSONでなければ番号付きの行分割に落ちるのだ", func(t *testing.T) {
		llm := LLMFunc(func(_ context.Context, _, _ string) (string, error) {
			return "1. first prompt\n2) second prompt\n\n", nil
		})

		prompts, err := NewPromptInventor(llm, 6).Invent(context.Background(), "a cat", nil, nil)
		if err != nil {
			t.Fatalf("エラーは不要なのだ: %v", err)
		}
		if !reflect.DeepEqual(prompts, []string{"first prompt", "second prompt"}) {
			t.Errorf("期待と違うのだ: %v", prompts)
		}
	})

	t.Run("件数上限を超えた分は切り捨てるのだ", func(t *testing.T) {
		llm := LLMFunc(func(_ context.Context, _, _ string) (string, error) {
			return `["a", "b", "c"]`, nil
		})

		prompts, err := NewPromptInventor(llm, 2).Invent(context.Background(), "a cat", nil, nil)
		if err != nil {
			t.Fatalf("エラーは不要なのだ: %v", err)
		}
		if len(prompts) != 2 {
			t.Errorf("2件に切り詰められるはずなのだ: %v", prompts)
		}
	})

	t.Run("好みがあればシステム指示に反映されるのだ", func(t *testing.T) {
		var captured string
		llm := LLMFunc(func(_ context.Context, system, _ string) (string, error) {
			captured = system
			return `["x"]`, nil
		})

		_, err := NewPromptInventor(llm, 6).Invent(context.Background(), "a cat",
			[]string{"liked prompt"}, []string{"impressionist"})
		if err != nil {
			t.Fatalf("エラーは不要なのだ: %v", err)
		}
		if !strings.Contains(captured, "liked prompt") || !strings.Contains(captured, "impressionist") {
			t.Errorf("好みがシステム指示に載っていないのだ: %s", captured)
		}
	})

	t.Run("空の応答はエラーなのだ", func(t *testing.T) {
		llm := LLMFunc(func(_ context.Context, _, _ string) (string, error) {
			return "[]", nil
		})
		if _, err := NewPromptInventor(llm, 6).Invent(context.Background(), "a cat", nil, nil); err == nil {
			t.Fatal("エラーが欲しいのだ")
		}
	})
}
