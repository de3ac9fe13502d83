package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// ハッシュ化したパスワードが元のパスワードで検証できることを検証
func TestHashPassword_Roundtrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("VerifyPassword should succeed for the original password")
	}
}

// ハッシュに平文が含まれないことを検証
func TestHashPassword_DoesNotContainPlaintext(t *testing.T) {
	hash, err := HashPassword("secret-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if strings.Contains(hash, "secret-password") {
		t.Error("hash must not contain the plaintext password")
	}
}

// 同じパスワードでも毎回異なるハッシュ（ソルト）が生成されることを検証
func TestHashPassword_SaltedPerCall(t *testing.T) {
	hash1, err := HashPassword("same-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	hash2, err := HashPassword("same-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if hash1 == hash2 {
		t.Error("two hashes of the same password should differ (per-call salt)")
	}
}

// 誤ったパスワードで検証が失敗することを検証
func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("right-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if VerifyPassword(hash, "wrong-password") {
		t.Error("VerifyPassword should fail for a wrong password")
	}
}

// 不正なハッシュ形式での検証が失敗することを検証
func TestVerifyPassword_MalformedHash(t *testing.T) {
	if VerifyPassword("not-a-bcrypt-hash", "anything") {
		t.Error("VerifyPassword should fail for a malformed hash")
	}
}
