package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/shouni/go-steer-kit/pkg/domain"
)

// エラー種別の番兵なのだ。呼び出し側は errors.Is で種類を判別できるのだ。
var (
	// ErrTransport はネットワーク層での失敗なのだ。
	ErrTransport = errors.New("生成サービスとの通信に失敗したのだ")
	// ErrService はサービスが非成功ステータスを返した失敗なのだ。
	ErrService = errors.New("生成サービスがエラーを返したのだ")
	// ErrMalformedResponse は応答に必須フィールドが欠けている失敗なのだ。
	ErrMalformedResponse = errors.New("生成サービスの応答形式が不正なのだ")
)

const generatePath = "/api/generate-images"

// Client は外部の画像生成サービスへのHTTPクライアントなのだ。
// 一時的な通信エラーには指数バックオフで再試行し、リクエスト全体には
// レートリミットをかけて確率的なバックエンドをいたわるのだ。
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryLimit time.Duration
}

// NewClient は生成サービス向けクライアントを構築するのだ。
// timeout は1リクエストあたり、retryLimit は再試行込みの上限時間なのだ。
func NewClient(baseURL string, timeout, retryLimit time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		// Burst 2 により、ファンアウト開始直後に2件までは同時に走り出せるのだ
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		retryLimit: retryLimit,
	}
}

// Generate はリクエストを1回分送信し、正規化済みの結果を返すのだ。
// 失敗は ErrTransport / ErrService / ErrMalformedResponse のいずれかで包んで返すのだ。
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.RoundPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("レートリミット待機中に中断されたのだ (%v): %w", err, ErrTransport)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗したのだ: %w", err)
	}

	var payload *domain.RoundPayload
	operation := func() error {
		p, err := c.post(ctx, body)
		if err != nil {
			// 通信エラーだけが再試行に値するのだ。サービス側の明示的な
			// 失敗や不正応答は何度送っても結果は同じなのだよ。
			if errors.Is(err, ErrTransport) {
				slog.Warn("通信に失敗したので再試行するのだ", "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		payload = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.retryLimit
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return payload, nil
}

// post は1回のPOSTを実行して応答を正規化するのだ。
func (c *Client) post(ctx context.Context, body []byte) (*domain.RoundPayload, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗したのだ: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("POST %s に失敗したのだ (%v): %w", generatePath, err, ErrTransport)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("応答の読み取りに失敗したのだ (%v): %w", err, ErrTransport)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ステータス %d: %s: %w", resp.StatusCode, serviceMessage(respBody), ErrService)
	}

	return normalizeResponse(respBody)
}

// serviceMessage はエラー応答からサーバー提供のメッセージを拾うのだ。
func serviceMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return "詳細メッセージなし"
}
