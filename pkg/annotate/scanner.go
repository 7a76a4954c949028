package annotate

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shouni/go-steer-kit/pkg/domain"
)

// Occurrence は、プロンプト本文中で見つかったキーワード1件の出現なのだ。
// Keyword には検索語ではなく、本文から切り出した元の大文字小文字を保持するのだ。
// Start/End はプロンプト文字列へのバイトオフセットの半開区間 [Start, End) なのだ。
type Occurrence struct {
	Keyword  string
	Category string
	Start    int
	End      int
}

// Scan は、プロンプト本文からカテゴリ別キーワードの出現をすべて洗い出すのだ。
// 照合は大文字小文字を区別しない単語単位の一致で、重複や重なりの解決はしない。
// それは Resolve の仕事なのだよ。features が nil なら空の結果を返すのだ。
func Scan(promptText string, features domain.FeatureSet) []Occurrence {
	if promptText == "" || len(features) == 0 {
		return nil
	}

	// マップの走査順は不定なので、カテゴリ名でソートして決定論的にするのだ
	categories := make([]string, 0, len(features))
	for name := range features {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	var occs []Occurrence
	for _, category := range categories {
		if strings.TrimSpace(category) == "" {
			slog.Warn("カテゴリ名が空なのでスキップするのだ")
			continue
		}
		for _, keyword := range features[category] {
			if strings.TrimSpace(keyword) == "" {
				// 抽出エージェントはたまに空のキーワードを混ぜてくるのだ
				continue
			}
			occs = append(occs, scanKeyword(promptText, keyword, category)...)
		}
	}
	return occs
}

// scanKeyword は1つのキーワードについて本文中の全出現を探すのだ。
func scanKeyword(promptText, keyword, category string) []Occurrence {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(keyword))
	if err != nil {
		slog.Warn("キーワードを正規表現に変換できなかったのだ", "keyword", keyword, "error", err)
		return nil
	}

	var occs []Occurrence
	for _, m := range re.FindAllStringIndex(promptText, -1) {
		start, end := m[0], m[1]
		if !isWholeWord(promptText, start, end) {
			continue
		}
		occs = append(occs, Occurrence{
			Keyword:  promptText[start:end], // 本文側の表記をそのまま保持するのだ
			Category: category,
			Start:    start,
			End:      end,
		})
	}
	return occs
}

// isWholeWord は、一致範囲の両隣が単語構成文字でないことを確認するのだ。
// これで "cat" が "category" の中にマッチするのを防げるのだよ。
func isWholeWord(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
