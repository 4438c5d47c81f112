package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/blackjack/internal/model"
)

// FailureResponseBody はプレイ失敗時のレスポンスの統一フォーマット。
// Reason がnilの場合はreasonキー自体を出力しない。
type FailureResponseBody struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Reason  *string `json:"reason,omitempty"`
}

// WriteFailureResponse は統一フォーマットで失敗レスポンスを書き込む。
func WriteFailureResponse(w http.ResponseWriter, statusCode int, failure *model.Failure) {
	body := FailureResponseBody{
		Status:  failure.Status,
		Message: failure.Message,
	}
	if failure.Reason != "" {
		reason := failure.Reason
		body.Reason = &reason
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write failure response",
			slog.String("status", failure.Status),
			slog.String("error", err.Error()),
		)
	}
}

// WriteInternalServerError は内部エラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteFailureResponse(w, http.StatusInternalServerError, model.NewInternalFailure())
}
