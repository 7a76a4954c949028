package domain

// FeatureSet は、外部の抽出エージェントがプロンプトごとに返す
// 「カテゴリ名 → キーワード列」のマッピングなのだ。
// nil（抽出なし）も空文字列を含むキーワードも許容し、利用側で読み飛ばすのだ。
type FeatureSet map[string][]string

// ResultItem は、生成ラウンドが返す1枚分の結果（プロンプトと画像URL）なのだ。
// プロンプト文字列が結果・選択状態・特徴量を紐付ける自然キーになるのだよ。
type ResultItem struct {
	Prompt string `json:"prompt"`
	URL    string `json:"url"`
}

// Feedback は、ユーザーがポジティブ評価した項目を運ぶフィードバックなのだ。
// 「なぜ選んだか」は記録しない。「何を選んだか」だけを運ぶのだ。
type Feedback struct {
	LikedPrompts       []string `json:"liked_prompts"`
	LikedStyleKeywords []string `json:"liked_style_keywords"`
}

// GenerateRequest は生成サービスへ送るリクエストボディなのだ。
type GenerateRequest struct {
	Description string   `json:"description"`
	Feedback    Feedback `json:"feedback"`
}

// RoundPayload は、1回の呼び出しが返した結果と特徴量の組なのだ。
// 特徴量はプロンプト本文をキーとした正規化済みのルックアップで持つのだ。
type RoundPayload struct {
	Results  []ResultItem
	Features map[string]FeatureSet
}

// GenerationRound は、1ラウンド分の送信内容とコミット済みの成果を保持する
// 一時的な値オブジェクトなのだ。失敗したラウンドでは生成されないのだ。
type GenerationRound struct {
	Request  GenerateRequest
	Results  []ResultItem
	Features map[string]FeatureSet
}
