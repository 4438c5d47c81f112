package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/blackjack/internal/middleware"
	"github.com/hitoshi/blackjack/internal/model"
)

// レスポンスメッセージ
const (
	winnerMessage = "Winner! You scored 17 or higher."
	loserMessage  = "Loser! You scored below 17."
)

// PlayServiceInterface はプレイハンドラーが必要とするサービスインターフェース。
type PlayServiceInterface interface {
	// PlayHand はデッキのシャッフル、2枚のドロー、ハンドの保存を順に行う。
	// 失敗時は段階ごとの型付きエラーを返す。
	PlayHand(ctx context.Context) (*model.Hand, error)
}

// handResponse は保存済みハンドのレスポンス表現。
type handResponse struct {
	ID         int64     `json:"id"`
	Card1Suit  string    `json:"card_1_suit"`
	Card1Value string    `json:"card_1_value"`
	Card2Suit  string    `json:"card_2_suit"`
	Card2Value string    `json:"card_2_value"`
	Total      int       `json:"total"`
	Winner     bool      `json:"winner"`
	CreatedAt  time.Time `json:"created_at"`
}

// playHandResponse は GET /play-hand の成功レスポンス。
type playHandResponse struct {
	Message     string       `json:"message"`
	GameResults handResponse `json:"gameResults"`
}

func toHandResponse(h *model.Hand) handResponse {
	return handResponse{
		ID:         h.ID,
		Card1Suit:  h.Card1Suit,
		Card1Value: h.Card1Value,
		Card2Suit:  h.Card2Suit,
		Card2Value: h.Card2Value,
		Total:      h.Total,
		Winner:     h.Winner,
		CreatedAt:  h.CreatedAt,
	}
}

// PlayHandler はハンドのプレイを受け付けるHTTPハンドラー。
type PlayHandler struct {
	service PlayServiceInterface
	logger  *slog.Logger
}

// NewPlayHandler はPlayHandlerを生成する。
func NewPlayHandler(service PlayServiceInterface, logger *slog.Logger) *PlayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayHandler{
		service: service,
		logger:  logger,
	}
}

// PlayHand は1ハンドをプレイし、勝敗と保存済みハンドを返す。
// GET /play-hand
func (h *PlayHandler) PlayHand(w http.ResponseWriter, r *http.Request) {
	hand, err := h.service.PlayHand(r.Context())
	if err != nil {
		h.handlePlayError(w, r, err)
		return
	}

	message := loserMessage
	if hand.Winner {
		message = winnerMessage
	}

	body, err := json.Marshal(playHandResponse{
		Message:     message,
		GameResults: toHandResponse(hand),
	})
	if err != nil {
		h.logger.Error("failed to encode play result",
			slog.String("stage", string(model.StageResponding)),
			slog.Int64("hand_id", hand.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// ステータス送信後の書き込み失敗はログのみ。2つ目のレスポンスは送らない。
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Error("failed to write play result",
			slog.String("stage", string(model.StageResponding)),
			slog.Int64("hand_id", hand.ID),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// handlePlayError は段階ごとのエラーを失敗レスポンスに変換する。
func (h *PlayHandler) handlePlayError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		shuffleErr *model.ShuffleError
		drawErr    *model.DrawError
		storeErr   *model.StoreError
	)

	switch {
	case errors.As(err, &shuffleErr):
		middleware.WriteFailureResponse(w, http.StatusBadRequest, model.NewShuffleFailure(model.Cause(shuffleErr)))
	case errors.As(err, &drawErr):
		middleware.WriteFailureResponse(w, http.StatusBadRequest, model.NewDrawFailure(model.Cause(drawErr)))
	case errors.As(err, &storeErr):
		middleware.WriteFailureResponse(w, http.StatusBadRequest, model.NewStoreFailure())
	default:
		h.logger.Error("internal server error",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
	}
}
