package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfigNotAvailable is reported when evaluation is attempted against the
// never-fetched snapshot.
var ErrConfigNotAvailable = errors.New("config JSON is not present")

// -----------------------------
// FetchFailedError
// -----------------------------

type FetchFailedError struct {
	Reason string
	Err    error
}

func NewFetchFailedError(reason string, err error) *FetchFailedError {
	return &FetchFailedError{Reason: reason, Err: err}
}

func (e *FetchFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch failed: %s", e.Reason)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}

func IsFetchFailed(err error) bool {
	var target *FetchFailedError
	return errors.As(err, &target)
}

// -----------------------------
// SettingNotFoundError
// -----------------------------

type SettingNotFoundError struct {
	Key           string
	AvailableKeys []string
}

func NewSettingNotFoundError(key string, available []string) *SettingNotFoundError {
	return &SettingNotFoundError{Key: key, AvailableKeys: available}
}

func (e *SettingNotFoundError) Error() string {
	return fmt.Sprintf("setting not found: %s (available keys: [%s])",
		e.Key, strings.Join(e.AvailableKeys, ", "))
}

func IsSettingNotFound(err error) bool {
	var target *SettingNotFoundError
	return errors.As(err, &target)
}

// -----------------------------
// UserContextMissingError
// -----------------------------

type UserContextMissingError struct {
	Key string
}

func NewUserContextMissingError(key string) *UserContextMissingError {
	return &UserContextMissingError{Key: key}
}

func (e *UserContextMissingError) Error() string {
	return fmt.Sprintf("setting %s has targeting rules but no user was passed; targeting rules skipped", e.Key)
}

func IsUserContextMissing(err error) bool {
	var target *UserContextMissingError
	return errors.As(err, &target)
}

// -----------------------------
// ParseError
// -----------------------------

type ParseError struct {
	Key string
	Err error
}

func NewParseError(key string, err error) *ParseError {
	return &ParseError{Key: key, Err: err}
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config JSON could not be parsed: %v", e.Err)
	}
	return fmt.Sprintf("value of setting %s could not be parsed: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}
