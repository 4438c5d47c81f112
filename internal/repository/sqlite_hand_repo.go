package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/blackjack/internal/model"
)

// SQLiteHandRepo はSQLiteを使用したハンドリポジトリ。
// created_atはUnixミリ秒で保存する。
type SQLiteHandRepo struct {
	db *sql.DB
}

// NewSQLiteHandRepo はSQLiteHandRepoを生成する。
func NewSQLiteHandRepo(db *sql.DB) *SQLiteHandRepo {
	return &SQLiteHandRepo{db: db}
}

// Create はハンドを作成する。IDはAUTOINCREMENTで採番される。
func (r *SQLiteHandRepo) Create(ctx context.Context, hand *model.Hand) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO hands (card_1_suit, card_1_value, card_2_suit, card_2_value, total, winner, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		hand.Card1Suit, hand.Card1Value, hand.Card2Suit, hand.Card2Value,
		hand.Total, hand.Winner, toMillis(hand.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert hand: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted hand id: %w", err)
	}
	hand.ID = id

	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// compile-time interface check
var _ HandRepository = (*SQLiteHandRepo)(nil)
