// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/blackjack/internal/model"
)

// HandRepository はハンドの永続化インターフェース。
// ハンドは作成のみを行い、更新・削除の経路は持たない。
type HandRepository interface {
	// Create はハンドを1件作成し、採番されたIDをhand.IDに設定する。
	// 同時に呼び出された場合もそれぞれ異なるIDが採番される。
	Create(ctx context.Context, hand *model.Hand) error
}
