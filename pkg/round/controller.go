package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-steer-kit/pkg/domain"
	"github.com/shouni/go-steer-kit/pkg/feedback"
	"github.com/shouni/go-steer-kit/pkg/selection"
)

// State はラウンドのライフサイクル状態なのだ。
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

// ErrRoundInFlight は、実行中のラウンドがあるのに Submit された場合のエラーなのだ。
// 一度 Requesting に入ったラウンドは完走するまで新しい投入を受け付けないのだ。
var ErrRoundInFlight = errors.New("前のラウンドがまだ実行中なのだ")

// Generator は1回分の生成リクエストを送る外部協力者なのだ。
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.RoundPayload, error)
}

// Controller は生成ラウンドの非同期サイクルを駆動する状態機械なのだ。
// 説明文・結果・特徴量・選択状態の単一所有者で、コミットはここでしか起きないのだ。
type Controller struct {
	gen    Generator
	fanout int

	// mu は下のすべての可変セルを守るのだ。コミット時の results と features の
	// 差し替えは同じクリティカルセクション内で行い、原子的な2セル交換にするのだ。
	mu          sync.Mutex
	state       State
	lastErr     error
	description string
	results     []domain.ResultItem
	features    map[string]domain.FeatureSet
	prompts     *selection.Set
	keywords    *selection.Set
}

// New はコントローラを生成するのだ。fanout が1未満なら1に切り上げるのだ。
func New(gen Generator, fanout int) *Controller {
	if fanout < 1 {
		fanout = 1
	}
	return &Controller{
		gen:      gen,
		fanout:   fanout,
		state:    StateIdle,
		features: make(map[string]domain.FeatureSet),
		prompts:  selection.NewSet(),
		keywords: selection.NewSet(),
	}
}

// SetDescription は次ラウンドの説明文を差し替えるのだ。
func (c *Controller) SetDescription(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.description = s
}

// Description は現在の説明文を返すのだ。
func (c *Controller) Description() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.description
}

// TogglePrompt は画像レベルのフィードバック選択を反転するのだ。
func (c *Controller) TogglePrompt(v string) bool {
	return c.prompts.Toggle(v)
}

// ToggleKeyword はスタイルキーワードの選択を反転するのだ。
func (c *Controller) ToggleKeyword(v string) bool {
	return c.keywords.Toggle(v)
}

// PromptSelected は指定プロンプトが選択中かどうかを返すのだ。
func (c *Controller) PromptSelected(v string) bool {
	return c.prompts.Contains(v)
}

// KeywordSelected は指定キーワードが選択中かどうかを返すのだ。
func (c *Controller) KeywordSelected(v string) bool {
	return c.keywords.Contains(v)
}

// SelectedKeywords は選択中のキーワードを挿入順で返すのだ。
func (c *Controller) SelectedKeywords() []string {
	return c.keywords.Values()
}

// SelectedPrompts は選択中のプロンプトを挿入順で返すのだ。
func (c *Controller) SelectedPrompts() []string {
	return c.prompts.Values()
}

// Results はコミット済み結果リストのコピーを返すのだ。
func (c *Controller) Results() []domain.ResultItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ResultItem, len(c.results))
	copy(out, c.results)
	return out
}

// Features は指定プロンプトのコミット済み特徴量を返すのだ。
func (c *Controller) Features(prompt string) (domain.FeatureSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fs, ok := c.features[prompt]
	return fs, ok
}

// State は現在の状態を返すのだ。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError は直近の失敗ラウンドのエラーを返すのだ。次の Submit で消えるのだ。
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Submit は1ラウンドを実行するのだ。
//
// Idle（または Failed の確認後）から Requesting へ遷移し、同一ペイロードを
// fanout 件並行に送るのだ。N件すべての完了を待ち合わせてから判定するのが
// 肝心で、1件でも失敗すればラウンド全体が Failed になり、コミット済みの
// 結果も選択状態も一切変化しないのだ。全件成功なら結果を呼び出し順に連結し、
// 特徴量を後勝ちでマージして原子的に差し替え、選択状態を空に戻すのだ。
func (c *Controller) Submit(ctx context.Context) (*domain.GenerationRound, error) {
	c.mu.Lock()
	if c.state == StateRequesting {
		c.mu.Unlock()
		return nil, ErrRoundInFlight
	}
	// Failed からの再投入はここでエラー表示を確認済みとみなすのだ
	c.lastErr = nil

	req, err := feedback.Build(c.description, c.prompts, c.keywords)
	if err != nil {
		// 検証エラーはネットワークに触れず Idle のまま表面化するのだ
		c.state = StateIdle
		c.mu.Unlock()
		return nil, err
	}

	c.state = StateRequesting
	n := c.fanout
	c.mu.Unlock()

	slog.Info("生成ラウンドを開始するのだ",
		"fanout", n,
		"liked_prompts", len(req.Feedback.LikedPrompts),
		"liked_keywords", len(req.Feedback.LikedStyleKeywords))

	payloads, errs := c.fanOut(ctx, req, n)

	if err := aggregate(errs, n); err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.lastErr = err
		c.mu.Unlock()
		slog.Error("ラウンドが失敗したのだ。結果は一切コミットしないのだ", "error", err)
		return nil, err
	}

	committed := c.commit(req, payloads)
	slog.Info("ラウンドをコミットしたのだ", "results", len(committed.Results))
	return committed, nil
}

// fanOut は同一ペイロードのリクエストをN件並行に発行し、全件の完了を待つのだ。
// errgroup.WithContext はあえて使わないのだ。最初の失敗で仲間をキャンセルすると
// 判定が順序依存になってしまう。常にN件の結果が出揃ってから評価するのだよ。
func (c *Controller) fanOut(ctx context.Context, req domain.GenerateRequest, n int) ([]*domain.RoundPayload, []error) {
	payloads := make([]*domain.RoundPayload, n)
	errs := make([]error, n)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		i := i // ゴルーチンのクロージャ対策なのだ
		eg.Go(func() error {
			payloads[i], errs[i] = c.gen.Generate(ctx, req)
			return nil
		})
	}
	// エラーは errs に集めてあるので、ここは純粋な合流点なのだ
	_ = eg.Wait()
	return payloads, errs
}

// aggregate はN件の結果を1つの判定にまとめるのだ。
func aggregate(errs []error, n int) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d/%d 件のリクエストが失敗したのだ: %w", len(failed), n, errors.Join(failed...))
}

// commit は全件成功の成果を取り込み、フィードバックを消費済みにするのだ。
func (c *Controller) commit(req domain.GenerateRequest, payloads []*domain.RoundPayload) *domain.GenerationRound {
	var results []domain.ResultItem
	features := make(map[string]domain.FeatureSet)
	for _, p := range payloads {
		results = append(results, p.Results...)
		for text, fs := range p.Features {
			// 同一プロンプト本文は後の呼び出しが上書きするのだ（後勝ち）
			features[text] = fs
		}
	}

	c.mu.Lock()
	c.state = StateCommitted
	c.results = results
	c.features = features
	c.mu.Unlock()

	// フィードバックはこのラウンドで使い切ったのでリセットするのだ
	c.prompts.Clear()
	c.keywords.Clear()

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()

	return &domain.GenerationRound{
		Request:  req,
		Results:  results,
		Features: features,
	}
}
