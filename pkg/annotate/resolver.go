package annotate

import (
	"sort"
)

// Segment はプロンプト本文の区間1つなのだ。Annotated が真なら、ちょうど1つの
// キーワード出現を包む注釈付き区間で、偽ならただの平文区間なのだ。
type Segment struct {
	Text      string `json:"text"`
	Annotated bool   `json:"annotated"`
	Keyword   string `json:"keyword,omitempty"`
	Category  string `json:"category,omitempty"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
}

// Resolve は、重なりうる出現の集まりを [0, len(promptText)) を過不足なく
// 覆う左から右への区間列に変換するのだ。
//
// アルゴリズムは決定論的でなければならないのだ:
//  1. 開始位置の昇順、同着なら区間長の降順でソートする（長い方を優先）。
//  2. カーソル0から左→右に掃引。開始がカーソルより手前の出現は、すでに
//     採用した出現と重なっているので捨てる。隙間があれば平文区間を挟み、
//     出現を注釈付き区間として採用してカーソルを終端へ進める。
//  3. 末尾に残りがあれば平文区間として出力する。
//
// 開始位置だけでソートする素朴な実装では重なった注釈が本文を壊すので、
// 必ずこの掃引で解決するのだ。
func Resolve(promptText string, occs []Occurrence) []Segment {
	if promptText == "" {
		return nil
	}
	if len(occs) == 0 {
		return []Segment{plainSegment(promptText, 0, len(promptText))}
	}

	sorted := make([]Occurrence, len(occs))
	copy(sorted, occs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return (sorted[i].End - sorted[i].Start) > (sorted[j].End - sorted[j].Start)
	})

	segs := make([]Segment, 0, len(sorted)*2+1)
	cursor := 0
	for _, oc := range sorted {
		if oc.Start < cursor {
			// 採用済みの区間と重なっているのだ。早い者勝ち・同着は長い方勝ちなのだ。
			continue
		}
		if oc.Start < 0 || oc.End > len(promptText) || oc.End <= oc.Start {
			continue
		}
		if oc.Start > cursor {
			segs = append(segs, plainSegment(promptText, cursor, oc.Start))
		}
		segs = append(segs, Segment{
			Text:      promptText[oc.Start:oc.End],
			Annotated: true,
			Keyword:   oc.Keyword,
			Category:  oc.Category,
			Start:     oc.Start,
			End:       oc.End,
		})
		cursor = oc.End
	}
	if cursor < len(promptText) {
		segs = append(segs, plainSegment(promptText, cursor, len(promptText)))
	}
	return segs
}

func plainSegment(s string, start, end int) Segment {
	return Segment{Text: s[start:end], Start: start, End: end}
}
