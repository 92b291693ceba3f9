package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hyperengineering/codex/internal/attrpath"
	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

// Field limits for stored text, counted in runes.
const (
	MaxAttributeLength = 1000
	MaxTextLength      = 20000
	MaxTitleLength     = 200
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidateText checks encoding, NUL bytes and rune length in one pass
// and reports the first failure.
func ValidateText(field, value string, max int) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{Field: field, Message: "must be valid UTF-8"}
	}
	if strings.ContainsRune(value, 0) {
		return &ValidationError{Field: field, Message: "must not contain null bytes"}
	}
	if max > 0 && utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateSingleLine rejects values containing line breaks.
func ValidateSingleLine(field, value string) *ValidationError {
	if _, multiline := attrpath.FirstLine(value); multiline {
		return &ValidationError{Field: field, Message: "must be a single line"}
	}
	return nil
}

// ValidateFingerprint rejects fingerprints with a non-finite component.
func ValidateFingerprint(field string, fp fingerprint.Fingerprint) *ValidationError {
	if !fp.Valid() {
		return &ValidationError{Field: field, Message: "must have finite max and min"}
	}
	return nil
}

// ValidateWriteRequest validates a data write and returns all failures.
func ValidateWriteRequest(req types.WriteRequest) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("attribute_text", req.AttributeText))
	c.Add(ValidateText("attribute_text", req.AttributeText, MaxAttributeLength))
	c.Add(ValidateSingleLine("attribute_text", req.AttributeText))
	c.Add(ValidateFingerprint("attribute_fingerprint", req.AttributeFingerprint))
	c.Add(ValidateRequired("text", req.Text))
	c.Add(ValidateText("text", req.Text, MaxTextLength))
	c.Add(ValidateFingerprint("data_fingerprint", req.DataFingerprint))
	c.Add(ValidateText("novel_title", req.NovelTitle, MaxTitleLength))

	if req.Chapter != nil {
		c.Add(ValidateRequired("chapter.number", req.Chapter.Number))
		if n, err := strconv.Atoi(req.Chapter.Number); req.Chapter.Number != "" && (err != nil || n < 0) {
			c.Add(&ValidationError{Field: "chapter.number", Message: "must be a non-negative integer"})
		}
		c.Add(ValidateText("chapter.title", req.Chapter.Title, MaxTitleLength))
	}
	if req.ChapterFingerprint != nil {
		c.Add(ValidateFingerprint("chapter_fingerprint", *req.ChapterFingerprint))
	}
	return c.Errors()
}

// ValidateDeleteDataRequest validates a data delete.
func ValidateDeleteDataRequest(req types.DeleteDataRequest) []ValidationError {
	var c Collector
	c.Add(ValidateFingerprint("attribute_fingerprint", req.AttributeFingerprint))
	c.Add(ValidateFingerprint("data_fingerprint", req.DataFingerprint))
	c.Add(ValidateText("text", req.Text, MaxTextLength))
	return c.Errors()
}
