package game

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/blackjack/internal/model"
)

// --- モック ---

type mockDeckClient struct {
	shuffleFn    func(ctx context.Context, deckCount int) (string, error)
	drawFn       func(ctx context.Context, deckID string, count int) ([]model.Card, error)
	shuffleCalls int
	drawCalls    int
}

func (m *mockDeckClient) Shuffle(ctx context.Context, deckCount int) (string, error) {
	m.shuffleCalls++
	if m.shuffleFn != nil {
		return m.shuffleFn(ctx, deckCount)
	}
	return "abc", nil
}

func (m *mockDeckClient) Draw(ctx context.Context, deckID string, count int) ([]model.Card, error) {
	m.drawCalls++
	if m.drawFn != nil {
		return m.drawFn(ctx, deckID, count)
	}
	return []model.Card{
		{Suit: "HEARTS", Value: "KING"},
		{Suit: "SPADES", Value: "7"},
	}, nil
}

type mockHandStore struct {
	storeFn func(ctx context.Context, cards []model.Card) (*model.Hand, error)
	calls   int
}

func (m *mockHandStore) StoreHand(ctx context.Context, cards []model.Card) (*model.Hand, error) {
	m.calls++
	if m.storeFn != nil {
		return m.storeFn(ctx, cards)
	}
	return &model.Hand{
		ID:         1,
		Card1Suit:  cards[0].Suit,
		Card1Value: cards[0].Value,
		Card2Suit:  cards[1].Suit,
		Card2Value: cards[1].Value,
		Total:      17,
		Winner:     true,
	}, nil
}

type mockPublisher struct {
	err       error
	published []*model.Hand
}

func (m *mockPublisher) PublishHand(ctx context.Context, hand *model.Hand) error {
	m.published = append(m.published, hand)
	return m.err
}

type mockRecorder struct {
	played   []bool
	failures []model.Stage
	observed []model.Stage
}

func (m *mockRecorder) RecordHandPlayed(winner bool)          { m.played = append(m.played, winner) }
func (m *mockRecorder) RecordStageFailure(stage model.Stage) { m.failures = append(m.failures, stage) }
func (m *mockRecorder) RecordStageLatency(stage model.Stage, d time.Duration) {
	m.observed = append(m.observed, stage)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// --- テスト ---

func TestService_PlayHand_Success(t *testing.T) {
	deck := &mockDeckClient{
		shuffleFn: func(ctx context.Context, deckCount int) (string, error) {
			if deckCount != 1 {
				t.Errorf("deckCount = %d, want 1", deckCount)
			}
			return "abc", nil
		},
		drawFn: func(ctx context.Context, deckID string, count int) ([]model.Card, error) {
			if deckID != "abc" {
				t.Errorf("deckID = %q, want %q", deckID, "abc")
			}
			if count != 2 {
				t.Errorf("count = %d, want 2", count)
			}
			return []model.Card{{Suit: "HEARTS", Value: "KING"}, {Suit: "SPADES", Value: "7"}}, nil
		},
	}
	store := &mockHandStore{}
	pub := &mockPublisher{}
	rec := &mockRecorder{}

	var buf bytes.Buffer
	svc := NewService(deck, store, pub, rec, newTestLogger(&buf), 1)

	hand, err := svc.PlayHand(context.Background())
	if err != nil {
		t.Fatalf("PlayHand がエラーを返した: %v", err)
	}
	if hand.Total != 17 || !hand.Winner {
		t.Errorf("hand = %+v", hand)
	}
	if len(pub.published) != 1 {
		t.Errorf("通知回数 = %d, want 1", len(pub.published))
	}
	if len(rec.played) != 1 || !rec.played[0] {
		t.Errorf("RecordHandPlayed = %v, want [true]", rec.played)
	}
	if len(rec.failures) != 0 {
		t.Errorf("失敗が記録されている: %v", rec.failures)
	}
	want := []model.Stage{model.StageShuffling, model.StageDrawing, model.StageStoring}
	if len(rec.observed) != len(want) {
		t.Fatalf("observed = %v, want %v", rec.observed, want)
	}
	for i := range want {
		if rec.observed[i] != want[i] {
			t.Errorf("observed[%d] = %q, want %q", i, rec.observed[i], want[i])
		}
	}
}

func TestService_PlayHand_ShuffleFailure_StopsPipeline(t *testing.T) {
	deck := &mockDeckClient{
		shuffleFn: func(ctx context.Context, deckCount int) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	store := &mockHandStore{}
	rec := &mockRecorder{}

	var buf bytes.Buffer
	svc := NewService(deck, store, nil, rec, newTestLogger(&buf), 1)

	hand, err := svc.PlayHand(context.Background())
	if hand != nil {
		t.Error("失敗時はnilを返すべき")
	}

	var se *model.ShuffleError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v (%T), want *model.ShuffleError", err, err)
	}
	if se.Err.Error() != "connection refused" {
		t.Errorf("原因 = %q, want %q", se.Err.Error(), "connection refused")
	}
	if deck.drawCalls != 0 || store.calls != 0 {
		t.Errorf("シャッフル失敗後に後続段階が実行された: draw=%d store=%d", deck.drawCalls, store.calls)
	}
	if len(rec.failures) != 1 || rec.failures[0] != model.StageShuffling {
		t.Errorf("failures = %v, want [shuffling]", rec.failures)
	}
	if !strings.Contains(buf.String(), `"stage":"shuffling"`) {
		t.Errorf("ログに段階が含まれていない: %s", buf.String())
	}
}

func TestService_PlayHand_ShuffleTypedErrorIsNotRewrapped(t *testing.T) {
	orig := &model.ShuffleError{Err: errors.New("card API returned status 503")}
	deck := &mockDeckClient{
		shuffleFn: func(ctx context.Context, deckCount int) (string, error) { return "", orig },
	}

	var buf bytes.Buffer
	svc := NewService(deck, &mockHandStore{}, nil, nil, newTestLogger(&buf), 1)

	_, err := svc.PlayHand(context.Background())
	if err != orig {
		t.Errorf("err = %v, 型付きエラーはそのまま返すべき", err)
	}
}

func TestService_PlayHand_DrawFailure_StopsPipeline(t *testing.T) {
	deck := &mockDeckClient{
		drawFn: func(ctx context.Context, deckID string, count int) ([]model.Card, error) {
			return nil, errors.New("deck not found")
		},
	}
	store := &mockHandStore{}
	rec := &mockRecorder{}

	var buf bytes.Buffer
	svc := NewService(deck, store, nil, rec, newTestLogger(&buf), 1)

	_, err := svc.PlayHand(context.Background())

	var de *model.DrawError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *model.DrawError", err)
	}
	if store.calls != 0 {
		t.Error("ドロー失敗後に保存が実行された")
	}
	if len(rec.failures) != 1 || rec.failures[0] != model.StageDrawing {
		t.Errorf("failures = %v, want [drawing]", rec.failures)
	}
}

func TestService_PlayHand_WrongCardCount_IsDrawFailure(t *testing.T) {
	deck := &mockDeckClient{
		drawFn: func(ctx context.Context, deckID string, count int) ([]model.Card, error) {
			return []model.Card{{Suit: "HEARTS", Value: "KING"}}, nil
		},
	}
	store := &mockHandStore{}

	var buf bytes.Buffer
	svc := NewService(deck, store, nil, nil, newTestLogger(&buf), 1)

	_, err := svc.PlayHand(context.Background())

	var de *model.DrawError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *model.DrawError", err)
	}
	if store.calls != 0 {
		t.Error("カード枚数が不正な場合は保存してはならない")
	}
}

func TestService_PlayHand_StoreFailure(t *testing.T) {
	store := &mockHandStore{
		storeFn: func(ctx context.Context, cards []model.Card) (*model.Hand, error) {
			return nil, errors.New("disk I/O error")
		},
	}
	pub := &mockPublisher{}
	rec := &mockRecorder{}

	var buf bytes.Buffer
	svc := NewService(&mockDeckClient{}, store, pub, rec, newTestLogger(&buf), 1)

	_, err := svc.PlayHand(context.Background())

	var se *model.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *model.StoreError", err)
	}
	if len(pub.published) != 0 {
		t.Error("保存失敗時に通知してはならない")
	}
	if len(rec.played) != 0 {
		t.Error("保存失敗時にプレイ数を記録してはならない")
	}
	if len(rec.failures) != 1 || rec.failures[0] != model.StageStoring {
		t.Errorf("failures = %v, want [storing]", rec.failures)
	}
}

func TestService_PlayHand_PublishFailure_DoesNotFailHand(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats: connection closed")}

	var buf bytes.Buffer
	svc := NewService(&mockDeckClient{}, &mockHandStore{}, pub, nil, newTestLogger(&buf), 1)

	hand, err := svc.PlayHand(context.Background())
	if err != nil {
		t.Fatalf("通知失敗でPlayHandが失敗してはならない: %v", err)
	}
	if hand == nil {
		t.Fatal("ハンドが返されていない")
	}
	if !strings.Contains(buf.String(), "nats: connection closed") {
		t.Errorf("通知失敗がログに記録されていない: %s", buf.String())
	}
}

func TestNewService_DefaultsDeckCount(t *testing.T) {
	svc := NewService(&mockDeckClient{}, &mockHandStore{}, nil, nil, nil, 0)
	if svc.deckCount != 1 {
		t.Errorf("deckCount = %d, want 1", svc.deckCount)
	}
	if svc.logger == nil {
		t.Error("logger は nil であってはならない")
	}
}
