// Package auth は認証情報の検証とセッショントークンのライフサイクルを提供する。
//
// パスワードは専用の低速ソルト付きハッシュ（bcrypt）でのみ保存し、
// 平文は一切永続化しない。トークンはHS256署名付きJWTで、
// サーバー側に状態を持たないステートレス設計とする。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword は平文パスワードのbcryptハッシュを生成する。
// ソルトはbcryptが内部で生成するため呼び出し側での管理は不要。
func HashPassword(rawPassword string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードが格納済みハッシュと一致するかを返す。
// 比較はbcryptの定数時間比較で行われる。
func VerifyPassword(passwordHash, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(rawPassword)) == nil
}
