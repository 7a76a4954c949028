package selection

import (
	"sync"
)

// Set は挿入順を保持する文字列の集合なのだ。
// 画像（プロンプト本文）用とキーワード用で、独立した2つのインスタンスを使うのだ。
// 照合は完全一致のみで、"Cat" と "cat" は別々のエントリになるのだよ。
type Set struct {
	mu    sync.Mutex
	index map[string]struct{}
	items []string
}

// NewSet は空の選択集合を生成するのだ。
func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Toggle は値の選択状態を反転させ、反転後に選択中かどうかを返すのだ。
// 2回トグルすれば元の集合に戻る。これが唯一の変更操作なのだ（Clearを除く）。
func (s *Set) Toggle(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[v]; ok {
		delete(s.index, v)
		for i, item := range s.items {
			if item == v {
				s.items = append(s.items[:i], s.items[i+1:]...)
				break
			}
		}
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Contains は値が選択中かどうかを返すのだ。
func (s *Set) Contains(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[v]
	return ok
}

// Clear は集合を空に戻すのだ。ラウンドのコミット直後に一度だけ呼ばれるのだ。
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = make(map[string]struct{})
	s.items = nil
}

// Values は挿入順の値リストのコピーを返すのだ。
func (s *Set) Values() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Len は選択中の件数を返すのだ。
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
