package password

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash() ошибка: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Errorf("Hash() = %q, неожиданный префикс", hash)
	}

	ok, err := Verify("s3cret", hash)
	if err != nil || !ok {
		t.Errorf("Verify(верный) = %v, %v", ok, err)
	}
	ok, err = Verify("wrong", hash)
	if err != nil || ok {
		t.Errorf("Verify(неверный) = %v, %v", ok, err)
	}
}

func TestHashUsesRandomSalt(t *testing.T) {
	a, _ := Hash("same")
	b, _ := Hash("same")
	if a == b {
		t.Error("два хэша одного пароля совпали")
	}
}

func TestHashEmpty(t *testing.T) {
	if _, err := Hash(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("Hash(\"\") = %v, ожидали ErrEmpty", err)
	}
}

func TestVerifyInvalid(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"мало частей", "$argon2id$v=19$abc"},
		{"другой алгоритм", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$a2V5"},
		{"версия", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$a2V5"},
		{"параметры", "$argon2id$v=19$x$c2FsdA$a2V5"},
		{"соль", "$argon2id$v=19$m=65536,t=1,p=4$!!!$a2V5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Verify("p", tt.encoded); !errors.Is(err, ErrInvalidHash) {
				t.Errorf("Verify() = %v, ожидали ErrInvalidHash", err)
			}
		})
	}

	ok, err := Verify("", "anything")
	if ok || err != nil {
		t.Errorf("Verify(пустой) = %v, %v", ok, err)
	}
}
