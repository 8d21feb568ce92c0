package hash

import "testing"

func TestHashAndCheck(t *testing.T) {
	h, err := HashPassword("password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if h == "password" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPasswordHash("password", h) {
		t.Error("CheckPasswordHash(correct) = false")
	}
	if CheckPasswordHash("Password", h) {
		t.Error("CheckPasswordHash(wrong) = true")
	}
	if CheckPasswordHash("password", "") {
		t.Error("CheckPasswordHash(empty hash) = true")
	}
}
