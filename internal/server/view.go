package server

import (
	gocache "github.com/patrickmn/go-cache"

	"github.com/shouni/go-steer-kit/pkg/annotate"
)

// stateViewModel は境界に返すエンジン状態のスナップショットなのだ。
// 見た目（レイアウトや装飾）はここの関心ではなく、描画に必要な構造だけを運ぶのだ。
type stateViewModel struct {
	Description      string       `json:"description"`
	State            string       `json:"state"`
	Results          []resultView `json:"results"`
	SelectedPrompts  []string     `json:"selected_prompts"`
	SelectedKeywords []string     `json:"selected_keywords"`
	Error            string       `json:"error,omitempty"`
}

type resultView struct {
	Prompt   string        `json:"prompt"`
	URL      string        `json:"url"`
	Selected bool          `json:"selected"`
	Segments []segmentView `json:"segments"`
}

type segmentView struct {
	annotate.Segment
	Selected bool `json:"selected"`
}

// stateView は現在のエンジン状態からビューモデルを組み立てるのだ。
func (s *Server) stateView() stateViewModel {
	view := stateViewModel{
		Description:      s.ctrl.Description(),
		State:            string(s.ctrl.State()),
		Results:          []resultView{},
		SelectedPrompts:  s.ctrl.SelectedPrompts(),
		SelectedKeywords: s.ctrl.SelectedKeywords(),
	}
	if err := s.ctrl.LastError(); err != nil {
		view.Error = err.Error()
	}

	for _, item := range s.ctrl.Results() {
		rv := resultView{
			Prompt:   item.Prompt,
			URL:      item.URL,
			Selected: s.ctrl.PromptSelected(item.Prompt),
		}
		for _, seg := range s.segments(item.Prompt) {
			sv := segmentView{Segment: seg}
			if seg.Annotated {
				sv.Selected = s.ctrl.KeywordSelected(seg.Keyword)
			}
			rv.Segments = append(rv.Segments, sv)
		}
		view.Results = append(view.Results, rv)
	}
	return view
}

// segments はプロンプト本文の区間分割を返すのだ。走査と解決は純粋で状態を
// 持たないから、本文キーのTTLキャッシュに安心して載せられるのだ。
func (s *Server) segments(promptText string) []annotate.Segment {
	if cached, ok := s.segCache.Get(promptText); ok {
		return cached.([]annotate.Segment)
	}

	features, _ := s.ctrl.Features(promptText)
	segs := annotate.Resolve(promptText, annotate.Scan(promptText, features))
	s.segCache.Set(promptText, segs, gocache.DefaultExpiration)
	return segs
}
