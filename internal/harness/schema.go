package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// SchemaError lists every violation of the scenario schema.
type SchemaError struct {
	File   string
	Issues []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: scenario schema violation: %s", e.File, strings.Join(e.Issues, "; "))
}

// ValidateSchema checks a scenario document against the embedded CUE
// schema. It catches unknown fields, wrong types and out-of-range values
// before the YAML is decoded.
func ValidateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return schemaError(filename, err)
	}
	return nil
}

// schemaError flattens CUE errors into one message per issue.
func schemaError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{File: filename, Issues: []string{err.Error()}}
	}

	issues := make([]string, 0, len(errs))
	for _, e := range errs {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := e.Path(); len(path) > 0 {
			msg = strings.Join(path, ".") + ": " + msg
		}
		issues = append(issues, msg)
	}
	return &SchemaError{File: filename, Issues: issues}
}
