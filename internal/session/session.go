// Package session carries the signed-in patient's profile. The workflow
// packages take a Profile at construction instead of reading ambient state,
// which keeps them testable without a hosted environment.
package session

type Profile struct {
	UserID string
	Phone  string
	Email  string
	Name   string
}
