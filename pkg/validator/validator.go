// Package validator extends validator.Validate with regex and notblank validation.
package validator

import (
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validate is a custom validator that extends the base validator.Validate.
type Validate struct {
	validator.Validate
}

// New creates a new instance of Validate
func New() *Validate {
	validate := &Validate{
		Validate: *validator.New(),
	}

	if err := validate.RegisterValidation("regex", validateRegex); err != nil {
		log.Fatalf("failed to register regex validator: %s", err)
	}
	if err := validate.RegisterValidation("notblank", validateNotBlank); err != nil {
		log.Fatalf("failed to register notblank validator: %s", err)
	}

	return validate
}

var (
	regexMu    sync.Mutex
	regexCache = map[string]*regexp.Regexp{}
)

// validateRegex is the custom validation function that checks if the field value
// matches the provided regular expression.
func validateRegex(fl validator.FieldLevel) bool {
	regexTag := fl.Param()

	regexMu.Lock()
	regex, ok := regexCache[regexTag]
	if !ok {
		regex = regexp.MustCompile(regexTag)
		regexCache[regexTag] = regex
	}
	regexMu.Unlock()

	return regex.MatchString(fl.Field().String())
}

// validateNotBlank fails for strings made only of whitespace.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
