// Package model はドメインモデルを定義する。
package model

import "fmt"

// ShuffleError はデッキのシャッフルに失敗したことを表す。
type ShuffleError struct {
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *ShuffleError) Error() string {
	return fmt.Sprintf("shuffle failed: %v", e.Err)
}

// Unwrap は原因となったエラーを返す。
func (e *ShuffleError) Unwrap() error { return e.Err }

// Stage はエラーが発生した段階を返す。
func (e *ShuffleError) Stage() Stage { return StageShuffling }

// DrawError はカードの取得に失敗したことを表す。
type DrawError struct {
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *DrawError) Error() string {
	return fmt.Sprintf("draw failed: %v", e.Err)
}

// Unwrap は原因となったエラーを返す。
func (e *DrawError) Unwrap() error { return e.Err }

// Stage はエラーが発生した段階を返す。
func (e *DrawError) Stage() Stage { return StageDrawing }

// StoreError はハンドの保存に失敗したことを表す。
type StoreError struct {
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *StoreError) Error() string {
	return fmt.Sprintf("store failed: %v", e.Err)
}

// Unwrap は原因となったエラーを返す。
func (e *StoreError) Unwrap() error { return e.Err }

// Stage はエラーが発生した段階を返す。
func (e *StoreError) Stage() Stage { return StageStoring }

// Cause はエラーの原因メッセージを返す。
// レスポンスのreasonには段階名の接頭辞を含めない原因のみを載せる。
func Cause(err error) string {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok && u.Unwrap() != nil {
		return u.Unwrap().Error()
	}
	return err.Error()
}

// Failure はプレイ失敗時のレスポンス内容を表す。
// Reason が空の場合はレスポンスにreasonを含めない。
type Failure struct {
	Status  string
	Message string
	Reason  string
}

// 失敗ステータス
const (
	FailureStatusShuffle   = "shuffle failure"
	FailureStatusDraw      = "draw card failure"
	FailureStatusStore     = "store hand failure"
	FailureStatusInternal  = "internal failure"
	FailureStatusRateLimit = "rate limit exceeded"
)

// NewShuffleFailure はシャッフル失敗レスポンスを生成する。
func NewShuffleFailure(reason string) *Failure {
	return &Failure{
		Status:  FailureStatusShuffle,
		Message: "Unable to shuffle decks of cards at this time",
		Reason:  reason,
	}
}

// NewDrawFailure はカード取得失敗レスポンスを生成する。
func NewDrawFailure(reason string) *Failure {
	return &Failure{
		Status:  FailureStatusDraw,
		Message: "Unable to draw cards at this time",
		Reason:  reason,
	}
}

// NewStoreFailure はハンド保存失敗レスポンスを生成する。
// 保存失敗の原因はログのみに記録し、レスポンスには含めない。
func NewStoreFailure() *Failure {
	return &Failure{
		Status:  FailureStatusStore,
		Message: "Unable to create game record in database at this time.",
	}
}

// NewInternalFailure は分類できないエラーのレスポンスを生成する。
func NewInternalFailure() *Failure {
	return &Failure{
		Status:  FailureStatusInternal,
		Message: "An unexpected error occurred. Please try again later.",
	}
}

// NewRateLimitFailure はレート制限超過レスポンスを生成する。
func NewRateLimitFailure() *Failure {
	return &Failure{
		Status:  FailureStatusRateLimit,
		Message: "Too many requests. Please try again later.",
	}
}
