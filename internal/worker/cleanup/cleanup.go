// Package cleanup は期限切れのメール確認トークンを定期的に破棄するジョブを提供する。
// 破棄されたユーザーは未確認のまま残り、再登録時に新しいトークンが発行される。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TokenStore は期限切れトークンの破棄を行うストア。
// repository.UserRepository が満たす。
type TokenStore interface {
	ClearExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error)
}

// Recorder は破棄件数の記録先。
type Recorder interface {
	RecordVerificationTokensCleared(n int64)
}

// Job は期限切れ確認トークンの破棄ジョブ。冪等に実行できる。
type Job struct {
	store    TokenStore
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewJob は新しいJobを生成する。recorderはnilでもよい。
func NewJob(store TokenStore, recorder Recorder, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		store:    store,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は期限切れの確認トークンを1回破棄する。対象がなくてもエラーにはならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	cleared, err := j.store.ClearExpiredVerificationTokens(ctx, j.now())
	if err != nil {
		j.logger.Error("verification token cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("clear expired verification tokens: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordVerificationTokensCleared(cleared)
	}

	j.logger.Info("verification token cleanup completed",
		slog.Int64("cleared_count", cleared),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後とinterval毎にRunを実行する。
// コンテキストがキャンセルされるまで戻らない。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("cleanup worker started", slog.Duration("interval", interval))

	// エラーはRun内でログ済み
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
