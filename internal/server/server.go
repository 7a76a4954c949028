package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/shouni/go-steer-kit/pkg/feedback"
	"github.com/shouni/go-steer-kit/pkg/round"
)

// Server は操縦ループのHTTP境界なのだ。エンジンの状態（説明文・結果・選択）は
// すべて Controller が所有し、ここは読み取りアクセサと操作の入口を
// JSONハンドラとして公開するだけなのだ。
type Server struct {
	ctrl     *round.Controller
	segCache *cache.Cache
}

// New は境界サーバーを構築するのだ。segCache には区間分割の結果を載せるのだ。
func New(ctrl *round.Controller, segCache *cache.Cache) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("コントローラが必要なのだ")
	}
	if segCache == nil {
		segCache = cache.New(cache.NoExpiration, cache.NoExpiration)
	}
	return &Server{ctrl: ctrl, segCache: segCache}, nil
}

// Routes はルーティング済みのハンドラを返すのだ。
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/description", s.handleDescription)
	mux.HandleFunc("/api/selection/prompt", s.handleTogglePrompt)
	mux.HandleFunc("/api/selection/keyword", s.handleToggleKeyword)
	mux.HandleFunc("/api/rounds", s.handleRound)
	mux.HandleFunc("/api/state", s.handleState)
	return logMiddleware(mux)
}

// --- Handlers ---

type descriptionReq struct {
	Description string `json:"description"`
}

func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionReq
	if !decodePost(w, r, &req) {
		return
	}
	s.ctrl.SetDescription(req.Description)
	writeJSON(w, http.StatusOK, map[string]string{"description": req.Description})
}

type toggleReq struct {
	Prompt  string `json:"prompt,omitempty"`
	Keyword string `json:"keyword,omitempty"`
}

func (s *Server) handleTogglePrompt(w http.ResponseWriter, r *http.Request) {
	var req toggleReq
	if !decodePost(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt が空なのだ"})
		return
	}
	selected := s.ctrl.TogglePrompt(req.Prompt)
	writeJSON(w, http.StatusOK, map[string]any{"prompt": req.Prompt, "selected": selected})
}

func (s *Server) handleToggleKeyword(w http.ResponseWriter, r *http.Request) {
	var req toggleReq
	if !decodePost(w, r, &req) {
		return
	}
	if req.Keyword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "keyword が空なのだ"})
		return
	}
	selected := s.ctrl.ToggleKeyword(req.Keyword)
	writeJSON(w, http.StatusOK, map[string]any{"keyword": req.Keyword, "selected": selected})
}

// handleRound は1ラウンドを同期的に実行するのだ。
// 実行中なら 409、検証エラーなら 400、ラウンド失敗なら 502 を返すのだ。
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, err := s.ctrl.Submit(r.Context())
	switch {
	case errors.Is(err, round.ErrRoundInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, feedback.ErrEmptyRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	// 結果が総入れ替えになったので、古い区間分割は捨てるのだ
	s.segCache.Flush()
	writeJSON(w, http.StatusOK, s.stateView())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.stateView())
}

// --- Helpers ---

func decodePost[T any](w http.ResponseWriter, r *http.Request, dst *T) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "リクエストボディを解釈できないのだ"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("応答のエンコードに失敗したのだ", "error", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}
