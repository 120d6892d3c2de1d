// Package domain contains core domain types for the ChatBot AI service.
package domain

import "strings"

// User is the identity produced by a successful sign-in or registration.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Valid reports whether the record carries the fields a restored session needs.
func (u User) Valid() bool {
	return u.ID != "" && u.Email != ""
}

// NameFromEmail returns the local part of an email address.
// The whole input is returned when it has no "@".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
