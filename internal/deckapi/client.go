// Package deckapi は外部カードAPI（deckofcardsapi.com互換）のクライアントを提供する。
// デッキのシャッフルとカードの取得の2操作のみを扱う。
package deckapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/blackjack/internal/model"
	"github.com/hitoshi/blackjack/internal/scoring"
)

const (
	// DefaultBaseURL はカードAPIのデフォルトのベースURL。
	DefaultBaseURL = "https://deckofcardsapi.com/api"
	// userAgent はカードAPIへのリクエストに付与するUser-Agent。
	userAgent = "Blackjack/1.0 Hand Service"
	// maxResponseSize はレスポンスボディの読み取り上限（バイト）。
	maxResponseSize = 1 << 20
)

// shuffleResponse はシャッフルAPIのレスポンス。
type shuffleResponse struct {
	Success   *bool  `json:"success"`
	DeckID    string `json:"deck_id"`
	Shuffled  bool   `json:"shuffled"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error"`
}

// drawResponse はカード取得APIのレスポンス。
type drawResponse struct {
	Success   *bool         `json:"success"`
	DeckID    string        `json:"deck_id"`
	Cards     []cardPayload `json:"cards"`
	Remaining int           `json:"remaining"`
	Error     string        `json:"error"`
}

// cardPayload はカードAPIが返すカード1枚分のデータ。
type cardPayload struct {
	Code  string `json:"code"`
	Image string `json:"image"`
	Value string `json:"value"`
	Suit  string `json:"suit"`
}

// Client はカードAPIのクライアント。
// リトライは行わず、1回の失敗をそのまま呼び出し元に返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultBaseURLを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Shuffle は指定数のデッキを新しくシャッフルし、デッキIDを返す。
// 失敗時は*model.ShuffleErrorを返す。
// GET {baseURL}/deck/new/shuffle/?deck_count=<n>
func (c *Client) Shuffle(ctx context.Context, deckCount int) (string, error) {
	if deckCount < 1 {
		return "", &model.ShuffleError{Err: fmt.Errorf("deck count must be at least 1, got %d", deckCount)}
	}

	q := url.Values{}
	q.Set("deck_count", strconv.Itoa(deckCount))

	var body shuffleResponse
	if err := c.getJSON(ctx, "/deck/new/shuffle/", q, &body); err != nil {
		return "", &model.ShuffleError{Err: err}
	}

	if body.Success != nil && !*body.Success {
		return "", &model.ShuffleError{Err: apiFailure(body.Error)}
	}
	if body.DeckID == "" {
		return "", &model.ShuffleError{Err: errors.New("card API response did not include a deck_id")}
	}

	return body.DeckID, nil
}

// Draw は指定デッキからcount枚のカードを引く。
// 返却枚数がcountと一致しない場合や、点数に変換できないカードが含まれる場合もエラーとする。
// 失敗時は*model.DrawErrorを返す。
// GET {baseURL}/deck/<deckID>/draw/?count=<n>
func (c *Client) Draw(ctx context.Context, deckID string, count int) ([]model.Card, error) {
	if deckID == "" {
		return nil, &model.DrawError{Err: errors.New("deck id is required")}
	}
	if count < 1 {
		return nil, &model.DrawError{Err: fmt.Errorf("card count must be at least 1, got %d", count)}
	}

	q := url.Values{}
	q.Set("count", strconv.Itoa(count))

	var body drawResponse
	if err := c.getJSON(ctx, "/deck/"+url.PathEscape(deckID)+"/draw/", q, &body); err != nil {
		return nil, &model.DrawError{Err: err}
	}

	if body.Success != nil && !*body.Success {
		return nil, &model.DrawError{Err: apiFailure(body.Error)}
	}
	if len(body.Cards) != count {
		return nil, &model.DrawError{Err: fmt.Errorf("card API returned %d cards, want %d", len(body.Cards), count)}
	}

	cards := make([]model.Card, len(body.Cards))
	for i, p := range body.Cards {
		if _, err := scoring.CardValue(p.Value); err != nil {
			return nil, &model.DrawError{Err: err}
		}
		cards[i] = model.Card{Suit: p.Suit, Value: p.Value}
	}

	return cards, nil
}

// getJSON はカードAPIにGETリクエストを送り、JSONレスポンスをoutにデコードする。
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build card API request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("カードAPIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("カードAPIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("card API returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read card API response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("カードAPIのレスポンスのパースに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to parse card API response: %w", err)
	}

	return nil
}

// apiFailure はsuccess:falseのレスポンスをエラーに変換する。
func apiFailure(message string) error {
	if message == "" {
		return errors.New("card API reported failure")
	}
	return fmt.Errorf("card API reported failure: %s", message)
}
