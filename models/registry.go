package models

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"gorm.io/gorm"
)

// EnvQuestionTypes selects which registered question types are enabled, as a
// comma-separated list of slugs. Unset means every registered type.
const EnvQuestionTypes = "DYNAMICFORMS_TYPES"

// ErrUnknownQuestionType is returned when a question's stored type tag has no
// registered implementation.
var ErrUnknownQuestionType = errors.New("unknown question type")

// Answer is one submitted answer, before type dispatch decides which concrete
// response table it lands in.
type Answer struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Text       string `json:"text"`
	ChoiceIDs  []uint `json:"choice_ids"`
}

// QuestionType is the concrete behavior behind a question's stored type tag:
// how to validate a submitted answer, persist it into the type's own response
// table, and read it back.
type QuestionType interface {
	Slug() string
	PrettyName() string

	// HasChoices reports whether questions of this type own answer options.
	HasChoices() bool

	ValidateAnswer(tx *gorm.DB, q *Question, ans Answer) error
	SaveResponse(tx *gorm.DB, set *ResponseSet, q *Question, ans Answer) error
	Responses(db *gorm.DB, set *ResponseSet) ([]ResponseRecord, error)

	// Stats aggregates every stored answer to the question into the type's
	// dashboard shape.
	Stats(db *gorm.DB, q *Question) (interface{}, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]QuestionType{}
	order      []string // registration order, for deterministic listings
	enabled    []string
)

// RegisterType adds a question type implementation to the process-wide
// registry. Built-in types register at load; custom types register before
// LoadEnabledTypes runs. Re-registering a slug replaces the previous
// implementation.
func RegisterType(qt QuestionType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	slug := qt.Slug()
	if _, ok := registry[slug]; !ok {
		order = append(order, slug)
	}
	registry[slug] = qt
}

// ResolveType returns the implementation behind a type slug.
func ResolveType(slug string) (QuestionType, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	qt, ok := registry[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuestionType, slug)
	}
	return qt, nil
}

// RegisteredTypes returns every registered type in registration order.
func RegisteredTypes() []QuestionType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]QuestionType, 0, len(order))
	for _, slug := range order {
		out = append(out, registry[slug])
	}
	return out
}

// EnabledTypes returns the types enabled by LoadEnabledTypes, in the order they
// were configured.
func EnabledTypes() []QuestionType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]QuestionType, 0, len(enabled))
	for _, slug := range enabled {
		out = append(out, registry[slug])
	}
	return out
}

// TypeEnabled reports whether new questions may use the given slug.
func TypeEnabled(slug string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, s := range enabled {
		if s == slug {
			return true
		}
	}
	return false
}

// LoadEnabledTypes builds the enabled list from DYNAMICFORMS_TYPES. A
// configured slug with no registered implementation is logged and skipped.
// Without the env var every registered type is enabled. Called once at boot.
func LoadEnabledTypes() {
	registryMu.Lock()
	defer registryMu.Unlock()

	raw := os.Getenv(EnvQuestionTypes)
	if strings.TrimSpace(raw) == "" {
		enabled = append([]string(nil), order...)
		return
	}

	enabled = enabled[:0]
	for _, slug := range strings.Split(raw, ",") {
		slug = strings.TrimSpace(slug)
		if slug == "" {
			continue
		}
		if _, ok := registry[slug]; !ok {
			log.Printf("question type %q is not registered, skipping", slug)
			continue
		}
		enabled = append(enabled, slug)
	}
}
