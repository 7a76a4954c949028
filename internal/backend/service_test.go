package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shouni/go-steer-kit/pkg/domain"
)

func newMockService() *Service {
	llm := MockLLM{}
	inventor := NewPromptInventor(llm, 3)
	extractor := NewStyleExtractor(llm, newTestCache(), 5)
	return NewService(inventor, extractor, MockImageGen{})
}

func TestService_RecordFeedback(t *testing.T) {
	t.Run("空のフィードバックはラウンドを進めないのだ", func(t *testing.T) {
		s := newMockService()
		s.recordFeedback(domain.Feedback{})
		if s.round != 1 {
			t.Errorf("ラウンドは1のままのはずなのだ: %d", s.round)
		}
	})

	t.Run("挿入順を保って重複を除去するのだ", func(t *testing.T) {
		s := newMockService()
		s.recordFeedback(domain.Feedback{
			LikedPrompts:       []string{"p1", "p2"},
			LikedStyleKeywords: []string{"vivid", "warm"},
		})
		s.recordFeedback(domain.Feedback{
			LikedPrompts:       []string{"p2", "p3"},
			LikedStyleKeywords: []string{"warm", "soft"},
		})

		liked, keywords := s.preferences()
		wantPrompts := []string{"p1", "p2", "p3"}
		wantKeywords := []string{"vivid", "warm", "soft"}
		if strings.Join(liked, ",") != strings.Join(wantPrompts, ",") {
			t.Errorf("期待: %v, 実際: %v", wantPrompts, liked)
		}
		if strings.Join(keywords, ",") != strings.Join(wantKeywords, ",") {
			t.Errorf("期待: %v, 実際: %v", wantKeywords, keywords)
		}
		if s.round != 3 {
			t.Errorf("ラウンドは3のはずなのだ: %d", s.round)
		}
	})
}

func TestService_HandleGenerate(t *testing.T) {
	t.Run("モック構成でラウンド一式を返すのだ", func(t *testing.T) {
		ts := httptest.NewServer(newMockService().Handler())
		defer ts.Close()

		body := strings.NewReader(`{"description": "a cat in a garden", "feedback": {"liked_prompts": [], "liked_style_keywords": []}}`)
		resp, err := http.Post(ts.URL+"/api/generate-images", "application/json", body)
		if err != nil {
			t.Fatalf("リクエストに失敗したのだ: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("ステータスが違うのだ: %d", resp.StatusCode)
		}

		var got struct {
			Results []domain.ResultItem `json:"results"`
			Prompts []struct {
				Text     string            `json:"text"`
				Features domain.FeatureSet `json:"features"`
			} `json:"prompts"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("応答を解釈できないのだ: %v", err)
		}
		if len(got.Results) == 0 || len(got.Prompts) == 0 {
			t.Fatalf("結果とプロンプトが両方欲しいのだ: %+v", got)
		}
		for _, r := range got.Results {
			if r.URL == "" {
				t.Errorf("URLが空の結果があるのだ: %+v", r)
			}
		}
		for _, p := range got.Prompts {
			if len(p.Features) == 0 {
				t.Errorf("特徴量が空のプロンプトがあるのだ: %q", p.Text)
			}
		}
	})

	t.Run("GETは許可しないのだ", func(t *testing.T) {
		ts := httptest.NewServer(newMockService().Handler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/api/generate-images")
		if err != nil {
			t.Fatalf("リクエストに失敗したのだ: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("405が欲しいのだ: %d", resp.StatusCode)
		}
	})

	t.Run("壊れたボディは400とerrorフィールドなのだ", func(t *testing.T) {
		ts := httptest.NewServer(newMockService().Handler())
		defer ts.Close()

		resp, err := http.Post(ts.URL+"/api/generate-images", "application/json", strings.NewReader("{"))
		if err != nil {
			t.Fatalf("リクエストに失敗したのだ: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("400が欲しいのだ: %d", resp.StatusCode)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("エラー応答を解釈できないのだ: %v", err)
		}
		if body["error"] == "" {
			t.Error("errorフィールドが欲しいのだ")
		}
	})
}
