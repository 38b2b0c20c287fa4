package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// scripted returns a prompter that answers with the given values in order.
func scripted(answers ...string) prompter {
	return func(string) (string, error) {
		if len(answers) == 0 {
			return "", errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
}

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	printUsage(&out)
	for _, want := range []string{"hash", "verify", "AUTH_PASSWORD_HASH"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hash", "hash"},
		{"re-set_2", "re-set_2"},
		{"a b", "a_b"},
		{"\x1b[31mred", "_[31mred"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		wantOK   bool
	}{
		{"valid password", "validpass123", "validpass123", true},
		{"minimum length password", "123456", "123456", true},
		{"too short password", "12345", "12345", false},
		{"empty password", "", "", false},
		{"mismatched passwords", "password123", "password456", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			ok := hashPassword(scripted(tt.password, tt.confirm), &stdout, &stderr)
			if ok != tt.wantOK {
				t.Fatalf("hashPassword() = %v, want %v (stderr: %s)", ok, tt.wantOK, stderr.String())
			}
			if !ok {
				if stdout.Len() != 0 {
					t.Errorf("stdout = %q, want empty on failure", stdout.String())
				}
				return
			}
			hash := strings.TrimSpace(stdout.String())
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(tt.password)); err != nil {
				t.Errorf("printed hash does not verify: %v", err)
			}
		})
	}
}

func TestHashPasswordReadError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if hashPassword(scripted(), &stdout, &stderr) {
		t.Fatal("hashPassword() should fail without input")
	}
	if !strings.Contains(stderr.String(), "Error reading password") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		wantOK   bool
	}{
		{"match", string(hash), "s3cret!", true},
		{"mismatch", string(hash), "wrong", false},
		{"hash not set", "", "s3cret!", false},
		{"malformed hash", "plaintext", "s3cret!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			ok := verifyPassword(scripted(tt.password), tt.hash, &stdout, &stderr)
			if ok != tt.wantOK {
				t.Errorf("verifyPassword() = %v, want %v (stderr: %s)", ok, tt.wantOK, stderr.String())
			}
		})
	}
}

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	prompt := linePrompter(strings.NewReader("first\r\nsecond"), &out)

	got, err := prompt("A: ")
	if err != nil || got != "first" {
		t.Errorf("first prompt = %q, %v", got, err)
	}
	got, err = prompt("B: ")
	if err != nil || got != "second" {
		t.Errorf("second prompt = %q, %v", got, err)
	}
	if _, err := prompt("C: "); err == nil {
		t.Error("prompt after EOF should fail")
	}
	if out.String() != "A: B: C: " {
		t.Errorf("labels = %q", out.String())
	}
}
