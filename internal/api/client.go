package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseSize はレスポンスボディの最大読み取りサイズ（5MB）。
const maxResponseSize = 5 << 20

// LatencyRecorder はAPI呼び出しのレイテンシを記録するインターフェース。
// metrics.Collectorが実装する。
type LatencyRecorder interface {
	RecordAPILatency(endpoint string, duration time.Duration)
}

// Config はAPIクライアントの設定。
type Config struct {
	// BaseURL はAPIのベースURL（例: "https://api.like.co"）。
	BaseURL   string
	UserAgent string
	DeviceID  string
	// RateLimit は1秒あたりの最大リクエスト数。0以下の場合は無制限。
	RateLimit rate.Limit
	RateBurst int
	// Recorder が指定された場合はエンドポイントごとのレイテンシを記録する。
	Recorder LatencyRecorder
}

// baseClient はliker.land / like.co クライアント共通のリクエスト処理。
type baseClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     Config
	limiter    *rate.Limiter
}

func newBaseClient(httpClient *http.Client, logger *slog.Logger, config Config) baseClient {
	limit := config.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := config.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return baseClient{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// do はリクエストを送信し、結果種別を返す。
// outがnilでない場合はレスポンスボディをJSONとしてデコードする。
// デコードに失敗した場合はKindBadDataを返す。
func (c *baseClient) do(
	ctx context.Context,
	endpoint, method, path string,
	query url.Values,
	out any,
) Kind {
	start := time.Now()
	defer func() {
		if c.config.Recorder != nil {
			c.config.Recorder.RecordAPILatency(endpoint, time.Since(start))
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("APIレート制限の待機が中断されました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return KindTimeout
	}

	reqURL := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		c.logger.Error("HTTPリクエストの作成に失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return KindUnknown
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.DeviceID != "" {
		req.Header.Set("X-Device-Id", c.config.DeviceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := ProblemFromError(err)
		c.logger.Error("APIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return kind
	}
	defer resp.Body.Close()

	if kind, failed := ProblemFromStatus(resp.StatusCode); failed {
		c.logger.Warn("APIがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
			slog.String("kind", string(kind)),
		)
		return kind
	}

	if out == nil {
		return KindOK
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return ProblemFromError(err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("APIレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return KindBadData
	}

	return KindOK
}

// escapePathSegment はLiker IDをパスセグメントとして安全に埋め込む。
func escapePathSegment(format, segment string) string {
	return fmt.Sprintf(format, url.PathEscape(segment))
}
