// Package scoring はカードの点数計算と勝敗判定を提供する。
// 副作用を持たない純粋関数のみで構成する。
package scoring

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// WinningTotal は勝ちとなる合計点の下限。
const WinningTotal = 17

// ErrUnknownCardValue は点数に変換できないカード値を表す。
var ErrUnknownCardValue = errors.New("unknown card value")

// CardValue はカード1枚の点数を返す。
// KING/QUEEN/JACK は10点、ACEは11点、それ以外は2〜10の数字として解釈する。
// 大文字・小文字は区別しない。
func CardValue(value string) (int, error) {
	v := strings.ToUpper(strings.TrimSpace(value))

	switch v {
	case "KING", "QUEEN", "JACK":
		return 10, nil
	case "ACE":
		return 11, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 2 || n > 10 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCardValue, value)
	}
	return n, nil
}

// Score はカード値の並びの合計点を返す。
// 1枚でも解釈できない値があればエラーを返す。
func Score(values []string) (int, error) {
	total := 0
	for _, value := range values {
		n, err := CardValue(value)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// IsWinner は合計点が勝ちかどうかを返す。
func IsWinner(total int) bool {
	return total >= WinningTotal
}
