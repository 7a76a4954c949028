package annotate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shouni/go-steer-kit/pkg/domain"
)

func TestScan(t *testing.T) {
	t.Run("単語境界を守ってマッチするのだ", func(t *testing.T) {
		prompt := "A cat sitting near a category sign"
		occs := Scan(prompt, domain.FeatureSet{"subject": {"cat"}})

		if len(occs) != 1 {
			t.Fatalf("出現は1件のはずなのだ: %+v", occs)
		}
		want := Occurrence{Keyword: "cat", Category: "subject", Start: 2, End: 5}
		if occs[0] != want {
			t.Errorf("期待: %+v, 実際: %+v", want, occs[0])
		}
	})

	t.Run("本文側の大文字小文字を保持するのだ", func(t *testing.T) {
		occs := Scan("A Vibrant sunset", domain.FeatureSet{"style": {"vibrant"}})
		if len(occs) != 1 || occs[0].Keyword != "Vibrant" {
			t.Fatalf("本文の表記 'Vibrant' が欲しいのだ: %+v", occs)
		}
	})

	t.Run("複数の出現をすべて拾うのだ", func(t *testing.T) {
		occs := Scan("red ball and red kite", domain.FeatureSet{"colors": {"red"}})
		if len(occs) != 2 {
			t.Fatalf("出現は2件のはずなのだ: %+v", occs)
		}
	})

	t.Run("同じ語が複数カテゴリに属してもよいのだ", func(t *testing.T) {
		occs := Scan("a watercolor landscape", domain.FeatureSet{
			"style":  {"watercolor"},
			"medium": {"watercolor"},
		})
		// 重複の解決は Resolve の仕事なので、ここでは2件とも残るのだ
		if len(occs) != 2 {
			t.Fatalf("出現は2件のはずなのだ: %+v", occs)
		}
	})

	t.Run("空のキーワードと空のカテゴリ名はスキップするのだ", func(t *testing.T) {
		occs := Scan("a cat", domain.FeatureSet{
			"subject": {"", "  ", "cat"},
			"":        {"cat"},
		})
		if len(occs) != 1 {
			t.Fatalf("出現は1件のはずなのだ: %+v", occs)
		}
	})

	t.Run("features が無ければ空なのだ", func(t *testing.T) {
		if occs := Scan("a cat", nil); occs != nil {
			t.Errorf("nil が欲しいのだ: %+v", occs)
		}
	})

	t.Run("正規表現のメタ文字を含むキーワードも安全なのだ", func(t *testing.T) {
		occs := Scan("shot at f/1.8 aperture", domain.FeatureSet{"details": {"f/1.8"}})
		if len(occs) != 1 || occs[0].Keyword != "f/1.8" {
			t.Fatalf("メタ文字付きキーワードがマッチしないのだ: %+v", occs)
		}
	})
}

// assertTotality は、区間列が本文を過不足なく覆うことを確認するヘルパーなのだ。
func assertTotality(t *testing.T, promptText string, segs []Segment) {
	t.Helper()
	var b strings.Builder
	cursor := 0
	for _, seg := range segs {
		if seg.Start != cursor {
			t.Fatalf("区間が %d から始まるべきところ %d から始まっているのだ", cursor, seg.Start)
		}
		b.WriteString(seg.Text)
		cursor = seg.End
	}
	if b.String() != promptText {
		t.Fatalf("連結結果が本文と一致しないのだ。期待: %q, 実際: %q", promptText, b.String())
	}
}

func TestResolve(t *testing.T) {
	t.Run("注釈1件の本文は平文・注釈・平文の3区間になるのだ", func(t *testing.T) {
		prompt := "A cat sitting near a category sign"
		segs := Resolve(prompt, Scan(prompt, domain.FeatureSet{"subject": {"cat"}}))

		want := []Segment{
			{Text: "A ", Start: 0, End: 2},
			{Text: "cat", Annotated: true, Keyword: "cat", Category: "subject", Start: 2, End: 5},
			{Text: " sitting near a category sign", Start: 5, End: 34},
		}
		if !reflect.DeepEqual(segs, want) {
			t.Errorf("期待: %+v, 実際: %+v", want, segs)
		}
		assertTotality(t, prompt, segs)
	})

	t.Run("同じ開始位置なら長い方が勝つのだ", func(t *testing.T) {
		prompt := "warm colors everywhere"
		occs := []Occurrence{
			{Keyword: "warm", Category: "mood", Start: 0, End: 4},
			{Keyword: "warm colors", Category: "colors", Start: 0, End: 11},
		}
		segs := Resolve(prompt, occs)

		if !segs[0].Annotated || segs[0].Keyword != "warm colors" {
			t.Fatalf("長い方の 'warm colors' が選ばれるべきなのだ: %+v", segs)
		}
		assertTotality(t, prompt, segs)
	})

	t.Run("重なった出現は捨てられるのだ", func(t *testing.T) {
		prompt := "abcdef"
		occs := []Occurrence{
			{Keyword: "abcd", Category: "x", Start: 0, End: 4},
			{Keyword: "cdef", Category: "y", Start: 2, End: 6},
		}
		segs := Resolve(prompt, occs)

		annotated := 0
		for _, seg := range segs {
			if seg.Annotated {
				annotated++
			}
		}
		if annotated != 1 {
			t.Errorf("注釈付き区間は1件のはずなのだ: %+v", segs)
		}
		assertTotality(t, prompt, segs)
	})

	t.Run("出現が無ければ全体が1つの平文区間なのだ", func(t *testing.T) {
		prompt := "just plain text"
		segs := Resolve(prompt, nil)
		if len(segs) != 1 || segs[0].Annotated || segs[0].Text != prompt {
			t.Fatalf("平文区間1件のはずなのだ: %+v", segs)
		}
	})

	t.Run("空文字列なら区間なしなのだ", func(t *testing.T) {
		if segs := Resolve("", nil); segs != nil {
			t.Errorf("nil が欲しいのだ: %+v", segs)
		}
	})

	t.Run("どんな出現集合でも全域性は崩れないのだ", func(t *testing.T) {
		prompt := "A vibrant watercolor of a cat playing with a red ball at night"
		features := domain.FeatureSet{
			"style":   {"vibrant", "watercolor", "vibrant watercolor"},
			"subject": {"cat"},
			"objects": {"red ball", "ball"},
			"time":    {"night"},
		}
		segs := Resolve(prompt, Scan(prompt, features))
		assertTotality(t, prompt, segs)
	})
}
