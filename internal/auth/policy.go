package auth

import "github.com/hitoshi/isofit/internal/model"

// Principal は認証済みのリクエスト主体を表す。
type Principal struct {
	UserID string
	Email  string
	Role   model.Role
}

// IsAdmin は管理者ロールかどうかを返す。
func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// Resource は認可判定の対象リソース。OwnerID は所有ユーザーのID。
type Resource struct {
	OwnerID string
}

// Predicate は主体がリソースを操作できるかを判定する。
type Predicate func(p Principal, r Resource) bool

// AdminOnly は管理者のみ許可する。
func AdminOnly(p Principal, _ Resource) bool {
	return p.IsAdmin()
}

// SelfOrAdmin は本人または管理者を許可する。
func SelfOrAdmin(p Principal, r Resource) bool {
	return p.IsAdmin() || (p.UserID != "" && p.UserID == r.OwnerID)
}

// Owner はリソースの所有者のみ許可する。管理者でも他人のリソースは操作できない。
func Owner(p Principal, r Resource) bool {
	return p.UserID != "" && p.UserID == r.OwnerID
}

// Authorize はpredを評価し、拒否された場合はFORBIDDENのAPIErrorを返す。
func Authorize(p Principal, r Resource, pred Predicate, reason string) error {
	if pred(p, r) {
		return nil
	}
	return model.NewForbiddenError(reason)
}
