package feedback

import (
	"errors"
	"strings"

	"github.com/shouni/go-steer-kit/pkg/domain"
	"github.com/shouni/go-steer-kit/pkg/selection"
)

// ErrEmptyRequest は、説明文も選択フィードバックも空でラウンドを駆動する
// 材料が何もないときの検証エラーなのだ。ネットワーク呼び出しの前に弾くのだ。
var ErrEmptyRequest = errors.New("説明文を入力するか、画像かキーワードを選択してほしいのだ")

// Build は現在の説明文と選択状態から次ラウンドのリクエストを組み立てるのだ。
// 純粋な写像で副作用はない。リスト順は選択の挿入順で、1回の呼び出し内では安定なのだ。
func Build(description string, prompts, keywords *selection.Set) (domain.GenerateRequest, error) {
	likedPrompts := prompts.Values()
	likedKeywords := keywords.Values()

	if strings.TrimSpace(description) == "" && len(likedPrompts) == 0 && len(likedKeywords) == 0 {
		return domain.GenerateRequest{}, ErrEmptyRequest
	}

	return domain.GenerateRequest{
		Description: description,
		Feedback: domain.Feedback{
			LikedPrompts:       likedPrompts,
			LikedStyleKeywords: likedKeywords,
		},
	}, nil
}
