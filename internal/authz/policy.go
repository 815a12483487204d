// Package authz はユーザーのEffectiveRolesと管理者許可リストに基づく認可判定を提供する。
package authz

import (
	"slices"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// Requirement はリソースへのアクセスに必要なロール集合を表す。
// いずれか1つを持っていれば満たされる（OR条件）。空の場合は認証のみを要求する。
type Requirement []string

// Roles は指定ロールのいずれかを要求するRequirementを生成する。
func Roles(roles ...string) Requirement {
	return Requirement(roles)
}

// Decision は認可判定の結果を表す。
type Decision int

const (
	// Unauthenticated はログインしていない状態。
	Unauthenticated Decision = iota
	// Forbidden はログイン済みだが必要なロールを持たない状態。
	Forbidden
	// Authorized はアクセスが許可された状態。
	Authorized
)

// String はメトリクスラベルやログに使う文字列表現を返す。
func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case Forbidden:
		return "forbidden"
	default:
		return "unauthenticated"
	}
}

// Policy は認可判定を行う。
// 管理者許可リストは起動時に固定され、実行中に変更されない。
type Policy struct {
	adminIDs map[string]struct{}
}

// NewPolicy は管理者ユーザーIDの許可リストからPolicyを生成する。
func NewPolicy(adminIDs []string) *Policy {
	m := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id != "" {
			m[id] = struct{}{}
		}
	}
	return &Policy{adminIDs: m}
}

// IsAdmin は指定の外部IDが管理者許可リストに含まれるかを返す。
func (p *Policy) IsAdmin(externalID string) bool {
	_, ok := p.adminIDs[externalID]
	return ok
}

// Evaluate はユーザーがRequirementを満たすかを判定する。
//   - userがnil: Unauthenticated
//   - 管理者: Requirementに関わらずAuthorized
//   - Requirementが空: Authorized
//   - EffectiveRolesとRequirementの共通部分が空でなければAuthorized、空ならForbidden
func (p *Policy) Evaluate(user *model.User, req Requirement) Decision {
	if user == nil {
		return Unauthenticated
	}
	if p.IsAdmin(user.ExternalID) {
		return Authorized
	}
	if len(req) == 0 {
		return Authorized
	}
	for _, r := range req {
		if slices.Contains(user.EffectiveRoles, r) {
			return Authorized
		}
	}
	return Forbidden
}
