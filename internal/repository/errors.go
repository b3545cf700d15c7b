package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/hitoshi/citary/internal/model"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pqUniqueViolation = "23505"

// isUniqueViolation はエラーが一意制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// classify はデータベースエラーを分類済みエラーに変換する。
// 行が見つからない場合はnotFoundを、一意制約違反はconflictを返す。
// それ以外はKindInternalServerとして原因を保持する。
func classify(err error, notFound func() *model.APIError, conflict func() *model.APIError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows) && notFound != nil:
		return notFound()
	case isUniqueViolation(err) && conflict != nil:
		return conflict()
	default:
		return model.NewInternalError(err)
	}
}
