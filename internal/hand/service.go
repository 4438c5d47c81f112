// Package hand はハンドの記録機能を提供する。
package hand

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/blackjack/internal/model"
	"github.com/hitoshi/blackjack/internal/repository"
	"github.com/hitoshi/blackjack/internal/scoring"
)

// CardsPerHand は1ハンドのカード枚数。
const CardsPerHand = 2

// Service はハンドの点数計算と保存を行うサービス。
type Service struct {
	repo repository.HandRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.HandRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// StoreHand は2枚のカードから合計点と勝敗を算出し、ハンドを1件保存する。
// 保存したハンド（採番済みID付き）を返す。
// 失敗時は*model.StoreErrorを返す。
func (s *Service) StoreHand(ctx context.Context, cards []model.Card) (*model.Hand, error) {
	if len(cards) != CardsPerHand {
		return nil, &model.StoreError{Err: fmt.Errorf("a hand requires exactly %d cards, got %d", CardsPerHand, len(cards))}
	}

	total, err := scoring.Score([]string{cards[0].Value, cards[1].Value})
	if err != nil {
		return nil, &model.StoreError{Err: err}
	}

	h := &model.Hand{
		Card1Suit:  cards[0].Suit,
		Card1Value: cards[0].Value,
		Card2Suit:  cards[1].Suit,
		Card2Value: cards[1].Value,
		Total:      total,
		Winner:     scoring.IsWinner(total),
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.Create(ctx, h); err != nil {
		return nil, &model.StoreError{Err: err}
	}

	return h, nil
}
