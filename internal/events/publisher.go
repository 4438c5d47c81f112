// Package events はハンドのプレイ結果をメッセージブローカーへ通知する機能を提供する。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/blackjack/internal/model"
	"github.com/nats-io/nats.go"
)

// DefaultSubject はハンドのプレイ結果を通知するデフォルトのサブジェクト。
const DefaultSubject = "blackjack.hands.played"

// HandPlayedEvent はハンドの保存完了時に通知するイベント。
type HandPlayedEvent struct {
	HandID     int64     `json:"hand_id"`
	Card1Suit  string    `json:"card_1_suit"`
	Card1Value string    `json:"card_1_value"`
	Card2Suit  string    `json:"card_2_suit"`
	Card2Value string    `json:"card_2_value"`
	Total      int       `json:"total"`
	Winner     bool      `json:"winner"`
	PlayedAt   time.Time `json:"played_at"`
}

// NewHandPlayedEvent は保存済みハンドからイベントを生成する。
func NewHandPlayedEvent(hand *model.Hand) HandPlayedEvent {
	return HandPlayedEvent{
		HandID:     hand.ID,
		Card1Suit:  hand.Card1Suit,
		Card1Value: hand.Card1Value,
		Card2Suit:  hand.Card2Suit,
		Card2Value: hand.Card2Value,
		Total:      hand.Total,
		Winner:     hand.Winner,
		PlayedAt:   hand.CreatedAt,
	}
}

// messagePublisher はNATS接続のうちPublisherが必要とする部分集合。
type messagePublisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher はNATSにハンドのプレイ結果を発行する。
type NATSPublisher struct {
	conn    messagePublisher
	subject string
}

// NewNATSPublisher はNATSPublisherを生成する。subjectが空の場合はDefaultSubjectを使用する。
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return newPublisher(conn, subject)
}

func newPublisher(conn messagePublisher, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishHand はハンドのプレイ結果をJSONで発行する。
func (p *NATSPublisher) PublishHand(ctx context.Context, hand *model.Hand) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(NewHandPlayedEvent(hand))
	if err != nil {
		return fmt.Errorf("failed to marshal hand event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish hand event: %w", err)
	}
	return nil
}

// Connect はNATSサーバーに接続する。
// tokenが指定されている場合はトークン認証を使用する。
func Connect(url, token string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("blackjack hand service"),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
