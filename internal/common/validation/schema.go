package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"scrumbot/pkg/registry"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator checks response documents against the contracts of a registry.
// Schemas are compiled once per contract id.
type Validator struct {
	registry *registry.ContractRegistry

	mu       sync.RWMutex
	compiled map[string]*gojsonschema.Schema
}

func NewValidator(reg *registry.ContractRegistry) *Validator {
	if reg == nil {
		reg = registry.Default()
	}
	return &Validator{
		registry: reg,
		compiled: make(map[string]*gojsonschema.Schema),
	}
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// Default returns a process-wide validator over the embedded registry.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultValidator = NewValidator(registry.Default())
	})
	return defaultValidator
}

// Compile compiles every contract and reports the first failure.
func (v *Validator) Compile() error {
	for _, c := range v.registry.Contracts {
		if _, err := v.schema(c.ID); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDocument checks a raw JSON body against the named contract.
func (v *Validator) ValidateDocument(contractID string, body []byte) (*ValidationResult, error) {
	schema, err := v.schema(contractID)
	if err != nil {
		return nil, err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		// Not JSON at all.
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_JSON",
			}},
		}, nil
	}
	return toResult(result), nil
}

func (v *Validator) schema(contractID string) (*gojsonschema.Schema, error) {
	v.mu.RLock()
	s, ok := v.compiled[contractID]
	v.mu.RUnlock()
	if ok {
		return s, nil
	}

	contract, ok := v.registry.Lookup(contractID)
	if !ok {
		return nil, fmt.Errorf("unknown contract %q", contractID)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(contract.Schema))
	if err != nil {
		return nil, fmt.Errorf("compile contract %q: %w", contractID, err)
	}

	v.mu.Lock()
	v.compiled[contractID] = s
	v.mu.Unlock()
	return s, nil
}

func toResult(r *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: r.Valid()}
	for _, desc := range r.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
