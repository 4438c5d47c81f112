package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/blackjack/internal/model"
)

// PostgresHandRepo はPostgreSQLを使用したハンドリポジトリ。
type PostgresHandRepo struct {
	db *sql.DB
}

// NewPostgresHandRepo はPostgresHandRepoを生成する。
func NewPostgresHandRepo(db *sql.DB) *PostgresHandRepo {
	return &PostgresHandRepo{db: db}
}

// Create はハンドを作成する。IDはSERIALで採番される。
func (r *PostgresHandRepo) Create(ctx context.Context, hand *model.Hand) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO hands (card_1_suit, card_1_value, card_2_suit, card_2_value, total, winner, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		hand.Card1Suit, hand.Card1Value, hand.Card2Suit, hand.Card2Value,
		hand.Total, hand.Winner, hand.CreatedAt,
	).Scan(&hand.ID)
	if err != nil {
		return fmt.Errorf("failed to insert hand: %w", err)
	}

	return nil
}

// compile-time interface check
var _ HandRepository = (*PostgresHandRepo)(nil)
