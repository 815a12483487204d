// Package registry は人物・車両・罰金の登録に関するドメインロジックを提供する。
// 入力値のフィールド単位の検証と正規化を行い、永続化はリポジトリに委譲する。
package registry

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/model"
)

// PublicListLimit は公開一覧で返す件数。
const PublicListLimit = 5

// TextSanitizer は自由記述からマークアップを除去する。
type TextSanitizer interface {
	Clean(raw string) string
}

// URLValidator は外部URLの安全性を検証する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// clock は現在時刻を返す。テストで差し替える。
type clock func() time.Time

// validateID はIDがUUID形式であることを検証する。
func validateID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewInvalidIDError(kind)
	}
	return nil
}

// orUnknown は空文字列を既定値に置き換える。
func orUnknown(s string) string {
	if s == "" {
		return model.DefaultUnknownValue
	}
	return s
}

// normalizePlate はパテンテの前後空白を除き大文字化する。
func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
