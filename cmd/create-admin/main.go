// Command create-admin creates an administrator account on a running server.
// The admin secret is read from ADMIN_SECRET, a .env file in the working
// directory is loaded first
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	server := pflag.String("server", "", "Base URL of the API server (default $FILEHUB_URL or http://localhost:8080)")
	pflag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Failed to load .env file:", err)
		os.Exit(1)
	}

	baseURL := *server
	if baseURL == "" {
		baseURL = os.Getenv("FILEHUB_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	os.Exit(run(context.Background(), bufio.NewReader(os.Stdin), os.Stdout, baseURL, os.Getenv("ADMIN_SECRET")))
}

func run(ctx context.Context, r *bufio.Reader, w io.Writer, baseURL, secret string) int {
	if secret == "" {
		fmt.Fprintln(w, "ADMIN_SECRET is not set")
		return 1
	}

	in, err := promptAdminInput(r, w)
	if err != nil {
		fmt.Fprintln(w, "Failed to read input:", err)
		return 1
	}

	if err := validateAdminInput(in); err != nil {
		fmt.Fprintln(w, "Invalid input:", err)
		return 1
	}

	userID, err := createAdmin(ctx, &http.Client{Timeout: 30 * time.Second}, baseURL, secret, in)
	if err != nil {
		fmt.Fprintln(w, "Failed to create admin:", err)
		return 1
	}

	fmt.Fprintf(w, "Admin %s created with ID %s\n", strings.ToLower(strings.TrimSpace(in.Email)), userID)
	return 0
}

func createAdmin(ctx context.Context, client *http.Client, baseURL, secret string, in adminInput) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    in.Email,
		"name":     in.Name,
		"password": in.Password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/admin/users", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", secret)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		UserID    string `json:"userID"`
		Error     string `json:"error"`
		RequestID string `json:"requestID"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("unexpected response (%s)", resp.Status)
	}

	if resp.StatusCode != http.StatusCreated {
		if out.Error == "" {
			out.Error = resp.Status
		}

		return "", fmt.Errorf("%s (request %s)", out.Error, out.RequestID)
	}

	return out.UserID, nil
}
