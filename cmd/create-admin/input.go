package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"bitwise74/filehub-api/pkg/validators"

	"golang.org/x/term"
)

// readPassword is swapped out in tests to avoid touching the terminal
var readPassword = term.ReadPassword

type adminInput struct {
	Email           string
	Name            string
	Password        string
	ConfirmPassword string
}

func validateAdminInput(in adminInput) error {
	if err := validators.EmailValidator(in.Email); err != nil {
		return err
	}

	if strings.TrimSpace(in.Name) == "" {
		return errors.New("no name provided")
	}

	if err := validators.PasswordValidator(in.Password); err != nil {
		return err
	}

	if in.Password != in.ConfirmPassword {
		return validators.ErrPasswordMismatch
	}

	return nil
}

func readLine(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}

	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}

		return "", err
	}

	return strings.TrimSpace(line), nil
}

func readSecret(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}

	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func promptAdminInput(r *bufio.Reader, w io.Writer) (adminInput, error) {
	var (
		in  adminInput
		err error
	)

	if in.Email, err = readLine(r, w, "Email: "); err != nil {
		return in, err
	}

	if in.Name, err = readLine(r, w, "Name: "); err != nil {
		return in, err
	}

	if in.Password, err = readSecret(w, "Password: "); err != nil {
		return in, err
	}

	if in.ConfirmPassword, err = readSecret(w, "Confirm password: "); err != nil {
		return in, err
	}

	return in, nil
}
