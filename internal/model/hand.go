// Package model はドメインモデルを定義する。
package model

import "time"

// Card は山札から引いたカード1枚を表す。
// Value は "KING"、"7"、"ACE" のようなカードAPIの表記のまま保持する。
type Card struct {
	Suit  string
	Value string
}

// Hand は1回のプレイ結果を表す。
// 2枚のカード、合計点、勝敗フラグを保持し、作成後に更新・削除されることはない。
type Hand struct {
	ID         int64
	Card1Suit  string
	Card1Value string
	Card2Suit  string
	Card2Value string
	Total      int
	Winner     bool
	CreatedAt  time.Time
}

// Stage はプレイ処理のどの段階で処理中かを表す。
type Stage string

const (
	// StageShuffling はカードAPIでデッキをシャッフルしている段階。
	StageShuffling Stage = "shuffling"
	// StageDrawing はシャッフル済みデッキからカードを引いている段階。
	StageDrawing Stage = "drawing"
	// StageStoring はハンドを保存している段階。
	StageStoring Stage = "storing"
	// StageResponding は結果レスポンスを書き込んでいる段階。
	StageResponding Stage = "responding"
)
