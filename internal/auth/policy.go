package auth

import (
	"net/mail"
	"strings"
)

// Credential policy limits. The username alphabet is deliberately narrow so
// handles stay usable in URLs and mentions.
const (
	fullNameMinLen = 3
	fullNameMaxLen = 50
	usernameMinLen = 3
	usernameMaxLen = 20
	passwordMinLen = 8
	passwordMaxLen = 64

	passwordSymbols = "@$!%*?&#"
)

// ValidateRegistration checks the full registration payload and reports every
// violated rule, not just the first. Username and email come back trimmed and
// lower-cased.
func ValidateRegistration(fullName, username, email, password string) (RegistrationInput, error) {
	verr := newValidationError()

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		verr.add("fullName", "full name is required")
	} else if l := len([]rune(fullName)); l < fullNameMinLen || l > fullNameMaxLen {
		verr.add("fullName", "full name must be 3-50 characters long")
	}

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		verr.add("username", "username is required")
	} else {
		if l := len(username); l < usernameMinLen || l > usernameMaxLen {
			verr.add("username", "username must be 3-20 characters long")
		}
		if !validUsernameChars(username) {
			verr.add("username", "username may only contain lowercase letters, digits and underscores")
		}
	}

	email, emailErrs := validateEmail(email)
	for _, msg := range emailErrs {
		verr.add("email", msg)
	}

	for _, msg := range passwordViolations(password) {
		verr.add("password", msg)
	}

	if !verr.empty() {
		return RegistrationInput{}, verr
	}
	return RegistrationInput{
		FullName: fullName,
		Username: username,
		Email:    email,
		Password: password,
	}, nil
}

// ValidateLogin checks a login payload.
func ValidateLogin(email, password string) (LoginInput, error) {
	verr := newValidationError()

	email, emailErrs := validateEmail(email)
	for _, msg := range emailErrs {
		verr.add("email", msg)
	}
	for _, msg := range passwordViolations(password) {
		verr.add("password", msg)
	}

	if !verr.empty() {
		return LoginInput{}, verr
	}
	return LoginInput{Email: email, Password: password}, nil
}

// ValidatePassword applies the password strength rule alone; used by the
// change-password path.
func ValidatePassword(password string) error {
	verr := newValidationError()
	for _, msg := range passwordViolations(password) {
		verr.add("password", msg)
	}
	if !verr.empty() {
		return verr
	}
	return nil
}

func validateEmail(email string) (string, []string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", []string{"email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", []string{"email address is invalid"}
	}
	return email, nil
}

func passwordViolations(password string) []string {
	var msgs []string
	if password == "" {
		return []string{"password is required"}
	}
	if l := len(password); l < passwordMinLen || l > passwordMaxLen {
		msgs = append(msgs, "password must be 8-64 characters long")
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !upper {
		msgs = append(msgs, "password must contain an uppercase letter")
	}
	if !lower {
		msgs = append(msgs, "password must contain a lowercase letter")
	}
	if !digit {
		msgs = append(msgs, "password must contain a digit")
	}
	if !symbol {
		msgs = append(msgs, "password must contain a symbol from "+passwordSymbols)
	}
	return msgs
}

func validUsernameChars(username string) bool {
	for _, r := range username {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return false
	}
	return true
}
