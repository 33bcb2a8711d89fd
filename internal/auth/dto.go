package auth

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const loginSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"username": {"type": "string", "minLength": 3},
		"password": {"type": "string", "minLength": 6}
	},
	"required": ["username", "password"]
}`

var compiledLoginSchema = mustCompile(loginSchema)

func mustCompile(schema string) *jsonschema.Schema {
	compiled, err := jsonschema.NewCompiler().Compile([]byte(schema))
	if err != nil {
		panic("auth: invalid login schema: " + err.Error())
	}
	return compiled
}

// DecodeLogin validates a raw login body against the login schema before
// decoding it.
func DecodeLogin(raw []byte) (LoginDTO, error) {
	if !json.Valid(raw) {
		return LoginDTO{}, internal.ErrInvalidBody
	}
	if err := validateLogin(raw); err != nil {
		return LoginDTO{}, err
	}
	var dto LoginDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return LoginDTO{}, internal.ErrInvalidBody.WithCause(err)
	}
	return dto, nil
}

// Validate checks an already decoded DTO with the same schema.
func (d LoginDTO) Validate() error {
	raw, err := json.Marshal(d)
	if err != nil {
		return internal.ErrInvalidBody.WithCause(err)
	}
	return validateLogin(raw)
}

func validateLogin(raw []byte) error {
	result := compiledLoginSchema.ValidateJSON(raw)
	if result.IsValid() {
		return nil
	}

	fields := collectFieldErrors(result, "")
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return internal.NewValidationFieldError("Invalid input", fields...)
}

// collectFieldErrors walks the evaluation tree and names each failure after
// the body field it concerns. Failures on the body itself are reported as
// "body".
func collectFieldErrors(node *jsonschema.EvaluationResult, base string) []internal.ValidationError {
	path := base + node.InstanceLocation
	var out []internal.ValidationError

	keywords := make([]string, 0, len(node.Errors))
	for keyword := range node.Errors {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	for _, keyword := range keywords {
		evalErr := node.Errors[keyword]
		switch {
		case keyword == "properties" && path == "":
			// aggregate of the per-property failures found below
			continue
		case keyword == "required":
			for _, name := range missingProperties(evalErr) {
				out = append(out, fieldError(joinField(path, name), evalErr.Error()))
			}
		default:
			field := strings.TrimPrefix(path, "/")
			if field == "" {
				field = "body"
			}
			out = append(out, fieldError(field, evalErr.Error()))
		}
	}

	for _, detail := range node.Details {
		out = append(out, collectFieldErrors(detail, path)...)
	}
	return out
}

// missingProperties reads the quoted names the required keyword reports.
func missingProperties(evalErr *jsonschema.EvaluationError) []string {
	var listed string
	if v, ok := evalErr.Params["property"].(string); ok {
		listed = v
	} else if v, ok := evalErr.Params["properties"].(string); ok {
		listed = v
	}
	var names []string
	for _, part := range strings.Split(listed, ",") {
		name := strings.Trim(strings.TrimSpace(part), "'")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func joinField(path, name string) string {
	if field := strings.TrimPrefix(path, "/"); field != "" {
		return field + "." + name
	}
	return name
}

func fieldError(field, message string) internal.ValidationError {
	return internal.ValidationError{
		Field:   field,
		Message: message,
		Code:    string(internal.ErrCodeValidationFailed),
	}
}
