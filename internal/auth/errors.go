package auth

import "errors"

var (
	// ErrAuthProvider はIdプロバイダーとのコード交換またはプロフィール取得に失敗したことを表す。
	ErrAuthProvider = errors.New("identity provider error")

	// ErrUnauthenticated は有効なセッションが存在しないことを表す。
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrMemberNotFound はユーザーが対象ギルドのメンバーでないことを表す。
	ErrMemberNotFound = errors.New("guild member not found")
)
