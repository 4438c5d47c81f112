// Package game は1ハンドのプレイ処理（シャッフル→ドロー→保存）を提供する。
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/blackjack/internal/model"
)

// CardsPerHand は1ハンドで引くカードの枚数。
const CardsPerHand = 2

// DeckClient はカードAPIのクライアントインターフェース。
type DeckClient interface {
	// Shuffle は新しいデッキをシャッフルし、デッキIDを返す。
	Shuffle(ctx context.Context, deckCount int) (string, error)
	// Draw は指定デッキからcount枚のカードを引く。
	Draw(ctx context.Context, deckID string, count int) ([]model.Card, error)
}

// HandStore はハンドの保存インターフェース。
type HandStore interface {
	StoreHand(ctx context.Context, cards []model.Card) (*model.Hand, error)
}

// Publisher は保存済みハンドの通知インターフェース。
type Publisher interface {
	PublishHand(ctx context.Context, hand *model.Hand) error
}

// Recorder はプレイ処理のメトリクス記録インターフェース。
type Recorder interface {
	RecordHandPlayed(winner bool)
	RecordStageFailure(stage model.Stage)
	RecordStageLatency(stage model.Stage, duration time.Duration)
}

// Service はハンドのプレイ処理を行うサービス。
// 各段階は直前の段階が成功した場合のみ実行し、リトライは行わない。
type Service struct {
	deck      DeckClient
	store     HandStore
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
	deckCount int
}

// NewService はServiceの新しいインスタンスを生成する。
// publisherとrecorderはnilでもよい。
func NewService(
	deck DeckClient,
	store HandStore,
	publisher Publisher,
	recorder Recorder,
	logger *slog.Logger,
	deckCount int,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if deckCount < 1 {
		deckCount = 1
	}
	return &Service{
		deck:      deck,
		store:     store,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		deckCount: deckCount,
	}
}

// PlayHand はデッキをシャッフルして2枚引き、結果を保存する。
// 失敗時のエラーは必ず *model.ShuffleError、*model.DrawError、*model.StoreError のいずれかになる。
func (s *Service) PlayHand(ctx context.Context) (*model.Hand, error) {
	// 1. シャッフル
	start := time.Now()
	deckID, err := s.deck.Shuffle(ctx, s.deckCount)
	s.observe(model.StageShuffling, start)
	if err != nil {
		return nil, s.fail(model.StageShuffling, asShuffleError(err))
	}

	// 2. ドロー
	start = time.Now()
	cards, err := s.deck.Draw(ctx, deckID, CardsPerHand)
	s.observe(model.StageDrawing, start)
	if err != nil {
		return nil, s.fail(model.StageDrawing, asDrawError(err))
	}
	if len(cards) != CardsPerHand {
		return nil, s.fail(model.StageDrawing, &model.DrawError{
			Err: fmt.Errorf("drew %d cards, want %d", len(cards), CardsPerHand),
		})
	}

	// 3. 保存
	start = time.Now()
	hand, err := s.store.StoreHand(ctx, cards)
	s.observe(model.StageStoring, start)
	if err != nil {
		return nil, s.fail(model.StageStoring, asStoreError(err))
	}

	if s.recorder != nil {
		s.recorder.RecordHandPlayed(hand.Winner)
	}
	s.logger.Info("ハンドを保存しました",
		slog.Int64("hand_id", hand.ID),
		slog.String("deck_id", deckID),
		slog.Int("total", hand.Total),
		slog.Bool("winner", hand.Winner),
	)

	s.publish(ctx, hand)

	return hand, nil
}

// publish は保存済みハンドを通知する。通知の失敗はプレイ結果に影響させない。
func (s *Service) publish(ctx context.Context, hand *model.Hand) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishHand(ctx, hand); err != nil {
		s.logger.Warn("ハンドの通知に失敗しました",
			slog.Int64("hand_id", hand.ID),
			slog.String("error", err.Error()),
		)
	}
}

// observe は段階の処理時間を記録する。
func (s *Service) observe(stage model.Stage, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordStageLatency(stage, time.Since(start))
	}
}

// fail は段階の失敗をログとメトリクスに記録し、errをそのまま返す。
func (s *Service) fail(stage model.Stage, err error) error {
	s.logger.Error("ハンドのプレイに失敗しました",
		slog.String("stage", string(stage)),
		slog.String("error", err.Error()),
	)
	if s.recorder != nil {
		s.recorder.RecordStageFailure(stage)
	}
	return err
}

// asShuffleError はerrを*model.ShuffleErrorとして返す。
// DeckClientの実装が型付きエラーを返さない場合もシャッフル段階の失敗として扱う。
func asShuffleError(err error) error {
	var se *model.ShuffleError
	if errors.As(err, &se) {
		return se
	}
	return &model.ShuffleError{Err: err}
}

// asDrawError はerrを*model.DrawErrorとして返す。
func asDrawError(err error) error {
	var de *model.DrawError
	if errors.As(err, &de) {
		return de
	}
	return &model.DrawError{Err: err}
}

// asStoreError はerrを*model.StoreErrorとして返す。
func asStoreError(err error) error {
	var se *model.StoreError
	if errors.As(err, &se) {
		return se
	}
	return &model.StoreError{Err: err}
}
