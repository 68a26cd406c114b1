package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("Secret1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "Secret1!" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if err := hasher.Compare(hash, "Secret1!"); err != nil {
		t.Fatalf("Compare() with correct password error = %v", err)
	}
	if err := hasher.Compare(hash, "WrongPass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Compare() with wrong password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestHasher_FreshSaltPerHash(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	first, err := hasher.Hash("Secret1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := hasher.Hash("Secret1!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same password (fresh salt)")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
	}{
		{name: "zero selects default", cost: 0},
		{name: "negative selects default", cost: -3},
		{name: "above max clamps", cost: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasher := NewHasher(tt.cost)
			if hasher.cost < bcrypt.MinCost || hasher.cost > bcrypt.MaxCost {
				t.Fatalf("cost %d out of bcrypt range", hasher.cost)
			}
		})
	}
}
