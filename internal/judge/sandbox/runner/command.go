package runner

import (
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/profile"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// buildCommand splits tpl with shell rules and then expands placeholders per
// argument, so workspace paths containing spaces stay single arguments.
func buildCommand(tpl string, lang profile.LanguageSpec, dir string) ([]string, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command template is required")
	}
	fields, err := shlex.Split(tpl)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command is empty after expansion")
	}
	replacer := strings.NewReplacer(
		"{src}", filepath.Join(dir, lang.SourceFile),
		"{bin}", filepath.Join(dir, lang.BinaryFile),
		"{dir}", dir,
	)
	for i, f := range fields {
		fields[i] = replacer.Replace(f)
	}
	return fields, nil
}
