package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/fastlog/internal/chrono"
)

//go:embed schema.cue
var schemaSource string

// ValidationError lists every problem found in a config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks cfg against the embedded CUE schema and checks that the
// default zone loads.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := def.Unify(ctx.Encode(cfg))

	var problems []string
	if err := value.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, strings.TrimSpace(cueerrors.Details(e, nil)))
		}
	}
	if _, err := chrono.LoadZone(cfg.DefaultZone); err != nil {
		problems = append(problems, fmt.Sprintf("default_zone: %v", err))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
