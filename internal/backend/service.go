package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-steer-kit/internal/config"
	"github.com/shouni/go-steer-kit/pkg/domain"
)

// Service は組み込みの生成サービスなのだ。プロセス内にユーザーの好み
// （気に入ったプロンプトとスタイルキーワード）を蓄積し、フィードバック付きの
// リクエストが来るたびにラウンドを進めるのだ。
type Service struct {
	inventor  *PromptInventor
	extractor *StyleExtractor
	imageGen  ImageGenerator

	mu            sync.Mutex
	likedPrompts  []string
	styleKeywords []string
	round         int
}

// NewService はサービスを構築するのだ。
func NewService(inventor *PromptInventor, extractor *StyleExtractor, imageGen ImageGenerator) *Service {
	return &Service{
		inventor:  inventor,
		extractor: extractor,
		imageGen:  imageGen,
		round:     1,
	}
}

// recordFeedback はフィードバックを好みに取り込み、ラウンドを進めるのだ。
// キーワードは挿入順を保ったまま重複を除去するのだ。
func (s *Service) recordFeedback(fb domain.Feedback) {
	if len(fb.LikedPrompts) == 0 && len(fb.LikedStyleKeywords) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.likedPrompts))
	for _, p := range s.likedPrompts {
		seen[p] = struct{}{}
	}
	for _, p := range fb.LikedPrompts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		s.likedPrompts = append(s.likedPrompts, p)
	}

	seenKw := make(map[string]struct{}, len(s.styleKeywords))
	var keywords []string
	for _, kw := range append(append([]string{}, s.styleKeywords...), fb.LikedStyleKeywords...) {
		if _, ok := seenKw[kw]; ok {
			continue
		}
		seenKw[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	s.styleKeywords = keywords

	s.round++
	slog.Info("フィードバックを記録したのだ",
		"round", s.round,
		"liked_prompts", len(s.likedPrompts),
		"style_keywords", len(s.styleKeywords))
}

// preferences は現在の好みのスナップショットを返すのだ。
func (s *Service) preferences() (liked, keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	liked = append(liked, s.likedPrompts...)
	keywords = append(keywords, s.styleKeywords...)
	return liked, keywords
}

// Handler は POST /api/generate-images を処理する http.Handler を返すのだ。
// 応答は結合形式（results + prompts[{text, features}]）なのだ。
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate-images", s.handleGenerate)
	return mux
}

type generateResponse struct {
	Results []domain.ResultItem `json:"results"`
	Prompts []promptWithFeature `json:"prompts"`
}

type promptWithFeature struct {
	Text     string            `json:"text"`
	Features domain.FeatureSet `json:"features"`
}

func (s *Service) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディを解釈できないのだ")
		return
	}
	if req.Description == "" {
		// 説明文が無ければ自由演技モードなのだ
		req.Description = "Generate a creative and visually appealing image"
	}

	ctx := r.Context()
	s.recordFeedback(req.Feedback)
	liked, keywords := s.preferences()

	prompts, err := s.inventor.Invent(ctx, req.Description, liked, keywords)
	if err != nil {
		slog.Error("プロンプト発明に失敗したのだ", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	features, err := s.extractor.Extract(ctx, prompts)
	if err != nil {
		slog.Error("特徴抽出に失敗したのだ", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	results := s.generateImages(ctx, prompts)
	if len(results) == 0 {
		writeError(w, http.StatusBadGateway, "画像を1枚も生成できなかったのだ")
		return
	}

	resp := generateResponse{Results: results}
	for _, p := range prompts {
		resp.Prompts = append(resp.Prompts, promptWithFeature{Text: p, Features: features[p]})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("応答のエンコードに失敗したのだ", "error", err)
	}
}

// generateImages はプロンプトごとの画像を並列生成するのだ。
// 個別の失敗はスキップして、生成できた分だけを返すのだ。
func (s *Service) generateImages(ctx context.Context, prompts []string) []domain.ResultItem {
	items := make([]*domain.ResultItem, len(prompts))
	eg, egCtx := errgroup.WithContext(ctx)

	// 画像APIをいたわるためのレートリミットなのだ（Burst 2で走り出しは速く）
	limiter := rate.NewLimiter(rate.Every(config.DefaultImageRateLimit), 2)

	for i, prompt := range prompts {
		i, prompt := i, prompt // ゴルーチンのクロージャ対策なのだ
		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return nil
			}
			url, err := s.imageGen.Generate(egCtx, prompt)
			if err != nil {
				slog.Error("画像生成に失敗したのでスキップするのだ", "prompt", prompt, "error", err)
				return nil
			}
			items[i] = &domain.ResultItem{Prompt: prompt, URL: url}
			return nil
		})
	}
	_ = eg.Wait()

	var results []domain.ResultItem
	for _, item := range items {
		if item != nil {
			results = append(results, *item)
		}
	}
	return results
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
