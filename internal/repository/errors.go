package repository

import "errors"

var (
	// 対象の行が無い
	ErrNotFound = errors.New("not found")

	// 同時更新に負けた（リトライ可能）
	ErrConflict = errors.New("conflict")

	// 一意制約違反（冪等キーの二重投入など）
	ErrDuplicate = errors.New("duplicate")
)
