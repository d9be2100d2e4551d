package portalcli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"unicode"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/session"
)

// Login authenticates with email and password and builds the per-user tabs.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	s, err := a.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	principal := s.User
	if principal == nil {
		principal = a.gate.ResolvePrincipal(ctx, a.client)
	}
	if principal == nil {
		log.Printf("Login unsuccessful: no principal resolved")
		return backend.ErrUnauthenticated
	}

	a.principal = principal
	a.tabs = newTabSet(a.client, principal.ID, a.reader)
	a.restoreTab(ctx)

	log.Printf("Login successful")
	return nil
}

// Register creates an account. Name fields travel as sign-up metadata; the
// backend's profile trigger turns them into the identity row.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	meta := map[string]string{}
	for _, f := range []struct{ key, prompt string }{
		{"first_name", "First name"},
		{"middle_name", "Middle name (optional)"},
		{"last_name", "Last name"},
		{"second_last_name", "Second last name (optional)"},
	} {
		v, err := GetSimpleText(a.reader, f.prompt, os.Stdout)
		if err != nil {
			return err
		}
		if v != "" {
			meta[f.key] = v
		}
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		return err
	}
	confirm, err := GetPassword("Repeat password", os.Stdout)
	if err != nil {
		return err
	}

	if err := CheckPasswordRules(string(password), string(confirm)); err != nil {
		fmt.Println(err.Error())
		return err
	}

	if _, err := a.client.SignUp(ctx, email, password, meta); err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	fmt.Println("Account created. Check your email, then log in.")
	return nil
}

// Logout runs the watchdog-guarded sign-out flow and drops per-user state.
func (a *App) Logout(ctx context.Context) error {
	session.SignOut(ctx, a.client, a.state, func() {
		fmt.Println("Signed out.")
	})
	a.principal = nil
	a.tabs = nil
	return nil
}

// CheckPasswordRules enforces the registration password policy: at least 8
// characters, 1 uppercase letter, 4 digits, 1 special character, and a
// matching confirmation.
func CheckPasswordRules(password, confirm string) error {
	var upper, digits, special int
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune("!@#$%^&*()_-+=[]{};:'\",.<>/?\\|`~", r):
			special++
		}
	}

	switch {
	case len(password) < 8:
		return fmt.Errorf("password must be at least 8 characters")
	case upper < 1:
		return fmt.Errorf("password needs at least 1 uppercase letter")
	case digits < 4:
		return fmt.Errorf("password needs at least 4 digits")
	case special < 1:
		return fmt.Errorf("password needs at least 1 special character")
	case password != confirm:
		return fmt.Errorf("passwords do not match")
	}
	return nil
}

// restoreTab reopens the last active tab, if one was persisted.
func (a *App) restoreTab(ctx context.Context) {
	if tab := a.state.ActiveTab(); tab != "" && a.tabs.has(tab) {
		a.tabs.open(ctx, tab)
	}
}
