// Package services defines the business logic for bots, templates,
// fine-tuning questions, and knowledge-base items. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/agentchief/go-emailbots-backend/internal/repo"
)

var (
	// ErrUnauthenticated is returned when an operation is attempted without
	// an authenticated identity attached to the request.
	ErrUnauthenticated = errors.New("please sign in to continue")

	// ErrDuplicateEmail indicates that another bot already uses the
	// requested email address, whether detected by the pre-insert check or
	// by the database unique constraint.
	ErrDuplicateEmail = errors.New("a bot with this email address already exists")

	// ErrDuplicateSource indicates that the knowledge-base source has
	// already been added, whether detected by the pre-insert check or by
	// the database unique constraint.
	ErrDuplicateSource = errors.New("this source has already been added to the knowledge base")

	// ErrInvalidURL is returned when a website source is not a well-formed
	// absolute URL after scheme normalization.
	ErrInvalidURL = errors.New("invalid URL format, include the full URL (e.g. https://example.com)")

	// ErrNotFound indicates that the update/delete target does not exist or
	// is not accessible to the current user.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidCategory is returned when a template category is outside
	// the fixed enum (support|sales|onboarding|handoff|other).
	ErrInvalidCategory = errors.New("invalid template category")

	// ErrInvalidDifficulty is returned when a fine-tuning question
	// difficulty is outside easy|medium|hard.
	ErrInvalidDifficulty = errors.New("difficulty must be easy, medium or hard")

	// ErrInvalidLanguage is returned when a template language is not a
	// well-formed BCP 47 code.
	ErrInvalidLanguage = errors.New("invalid language code")

	// ErrInvalidStatus is returned when a conversation status is outside
	// active|resolved|pending|forwarded.
	ErrInvalidStatus = errors.New("invalid conversation status")
)

// isNotFound reports whether err is the repository's missing-record error.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
