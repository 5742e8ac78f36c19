package refresh

import (
	"time"

	"github.com/hitoshi/likereader/internal/api"
)

// Outcome は同期操作の結果をスケジューラの観点で分類したもの。
type Outcome int

const (
	// OutcomeOK は同期が成功した。
	OutcomeOK Outcome = iota
	// OutcomeSkipped は取得中などの理由で同期が行われなかった。
	OutcomeSkipped
	// OutcomeAuth は認証・認可の失敗。再ログインまで回復しない。
	OutcomeAuth
	// OutcomeTransient はタイムアウトやサーバーエラーなど一時的な失敗。
	OutcomeTransient
)

// Classify は結果種別をスケジューラの観点で分類する。
func Classify(kind api.Kind) Outcome {
	switch kind {
	case api.KindOK:
		return OutcomeOK
	case "":
		return OutcomeSkipped
	case api.KindUnauthorized, api.KindForbidden:
		return OutcomeAuth
	default:
		return OutcomeTransient
	}
}

// CalculateBackoff は連続失敗回数に基づくバックオフ時間を計算する。
// 3回連続: 30分、5回連続: 1時間、10回連続: 6時間。
func CalculateBackoff(consecutiveFailures int) time.Duration {
	switch {
	case consecutiveFailures >= 10:
		return 6 * time.Hour
	case consecutiveFailures >= 5:
		return 1 * time.Hour
	case consecutiveFailures >= 3:
		return 30 * time.Minute
	default:
		return 0
	}
}
