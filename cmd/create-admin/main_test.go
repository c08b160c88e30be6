package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitwise74/filehub-api/pkg/validators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAdminInput(t *testing.T) {
	valid := adminInput{Email: "root@example.com", Name: "Root", Password: "hunter22", ConfirmPassword: "hunter22"}

	tests := []struct {
		name    string
		mutate  func(*adminInput)
		wantErr error
	}{
		{"valid", func(*adminInput) {}, nil},
		{"bad email", func(in *adminInput) { in.Email = "root" }, validators.ErrEmailInvalid},
		{"empty email", func(in *adminInput) { in.Email = "" }, validators.ErrEmailEmpty},
		{"short password", func(in *adminInput) { in.Password, in.ConfirmPassword = "12345", "12345" }, validators.ErrPasswordTooShort},
		{"mismatch", func(in *adminInput) { in.ConfirmPassword = "hunter23" }, validators.ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			err := validateAdminInput(in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	in := valid
	in.Name = "  "
	assert.Error(t, validateAdminInput(in))
}

// stubPasswords makes readPassword return the given answers in order
func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()

	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) {
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestRun(t *testing.T) {
	var got map[string]string
	var gotSecret string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/users", r.URL.Path)
		gotSecret = r.Header.Get("X-Admin-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		if got["email"] == "taken@example.com" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"This email is already registered","requestID":"abc"}`))
			return
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"userID":"u1","email":"root@example.com"}`))
	}))
	defer srv.Close()

	t.Run("success", func(t *testing.T) {
		stubPasswords(t, "hunter22", "hunter22")
		var out bytes.Buffer

		code := run(context.Background(), bufio.NewReader(strings.NewReader("root@example.com\nRoot\n")), &out, srv.URL, "s3cret")
		assert.Equal(t, 0, code, out.String())
		assert.Equal(t, "s3cret", gotSecret)
		assert.Equal(t, "Root", got["name"])
		assert.Contains(t, out.String(), "u1")
	})

	t.Run("remote error", func(t *testing.T) {
		stubPasswords(t, "hunter22", "hunter22")
		var out bytes.Buffer

		code := run(context.Background(), bufio.NewReader(strings.NewReader("taken@example.com\nRoot\n")), &out, srv.URL, "s3cret")
		assert.Equal(t, 1, code)
		assert.Contains(t, out.String(), "already registered")
	})

	t.Run("validation error", func(t *testing.T) {
		stubPasswords(t, "hunter22", "hunter23")
		var out bytes.Buffer

		code := run(context.Background(), bufio.NewReader(strings.NewReader("root@example.com\nRoot\n")), &out, srv.URL, "s3cret")
		assert.Equal(t, 1, code)
		assert.Contains(t, out.String(), "passwords do not match")
	})

	t.Run("missing secret", func(t *testing.T) {
		var out bytes.Buffer

		code := run(context.Background(), bufio.NewReader(strings.NewReader("")), &out, srv.URL, "")
		assert.Equal(t, 1, code)
	})
}
