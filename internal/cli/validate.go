package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/msgpulse/internal/compiler"
	"github.com/roach88/msgpulse/internal/config"
	"github.com/roach88/msgpulse/internal/event"
)

// Feature checks that go beyond event rules.
const (
	WarnDuplicateTrigger = "W301" // trigger used by more than one command
	WarnBlankTrigger     = "W302" // command without triggers or with a blank one
	WarnBlankBroadcast   = "W303" // broadcast message is empty
	WarnNoImages         = "W401" // dead image enabled without images
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Catalog string
	Strict  bool // warnings fail validation
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Sources  map[string]string          `json:"sources,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Check feature configuration against an event catalog",
		Long: `Check the feature files in a config directory.

Every event rule is resolved against the catalog the way the engine will
bind it: unknown events are errors; unmatched braces, unknown token paths
and targets that never fire are warnings. Custom commands, broadcasts and
dead-player images get sanity checks too.

Exit codes:
  0 - valid (warnings allowed unless --strict)
  1 - validation problems
  2 - command error (missing directory, broken catalog)

Examples:
  msgpulse validate ./config --catalog ./catalog
  msgpulse validate ./config --catalog events.cue --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "event catalog (.cue file or directory)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat warnings as failures")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func runValidate(opts *ValidateOptions, configDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("config directory not found: %s", configDir))
	}

	cat, err := LoadCatalog(opts.Catalog)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}
	formatter.VerboseLog("Loaded %d event(s) from %d CUE file(s)", len(cat.Catalog.Events), cat.FileCount)

	loader, err := config.NewLoader()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	cfg, err := loader.Load(configDir)
	if err != nil {
		return outputValidationResult(formatter, ValidationResult{
			Errors: []compiler.ValidationError{{Field: "config", Message: err.Error(), Code: ErrCodeConfig}},
		}, opts.Strict)
	}
	for name, src := range cfg.Sources {
		if src == "" {
			formatter.VerboseLog("%s: no file, using defaults", name)
		} else {
			formatter.VerboseLog("%s: %s", name, src)
		}
	}

	result := ValidationResult{Sources: cfg.Sources}
	problems := append([]compiler.ValidationError{}, cat.Warnings...)
	problems = append(problems, ValidateConfig(cat.Registry, cfg)...)
	for _, p := range problems {
		if p.IsWarning() {
			result.Warnings = append(result.Warnings, p)
		} else {
			result.Errors = append(result.Errors, p)
		}
	}
	return outputValidationResult(formatter, result, opts.Strict)
}

// ValidateConfig checks every feature of cfg. Event rules are checked
// against catalog.
func ValidateConfig(catalog event.Catalog, cfg *config.Config) []compiler.ValidationError {
	var problems []compiler.ValidationError

	for _, p := range compiler.ValidateRules(catalog, cfg.EventMessages.Rules) {
		p.Field = config.FileEventMessages + "." + p.Field
		problems = append(problems, p)
	}

	owners := map[string]int{}
	for i, c := range cfg.CustomCommands.Commands {
		field := fmt.Sprintf("%s.commands[%d].triggers", config.FileCustomCommands, i)
		if len(c.Triggers) == 0 {
			problems = append(problems, compiler.ValidationError{
				Field:   field,
				Message: "command has no triggers and is skipped",
				Code:    WarnBlankTrigger,
			})
			continue
		}
		for _, trigger := range c.Triggers {
			t := strings.TrimSpace(trigger)
			if t == "" {
				problems = append(problems, compiler.ValidationError{
					Field:   field,
					Message: "blank trigger; this command is skipped",
					Code:    WarnBlankTrigger,
				})
				continue
			}
			key := event.Fold(t)
			if prev, dup := owners[key]; dup {
				problems = append(problems, compiler.ValidationError{
					Field:   field,
					Message: fmt.Sprintf("trigger %q is already used by commands[%d]; this command is skipped", t, prev),
					Code:    WarnDuplicateTrigger,
				})
				continue
			}
			owners[key] = i
		}
	}

	for i, m := range cfg.ChatBroadcast.Messages {
		if m.Broadcast && strings.TrimSpace(m.Message) == "" {
			problems = append(problems, compiler.ValidationError{
				Field:   fmt.Sprintf("%s.messages[%d].message", config.FileChatBroadcast, i),
				Message: "message is empty and is skipped",
				Code:    WarnBlankBroadcast,
			})
		}
	}

	if cfg.DeadShowImage.Enabled && len(cfg.DeadShowImage.Images) == 0 {
		problems = append(problems, compiler.ValidationError{
			Field:   config.FileDeadShowImage + ".images",
			Message: "enabled without images; nothing is shown",
			Code:    WarnNoImages,
		})
	}

	return problems
}

func outputValidationResult(formatter *OutputFormatter, result ValidationResult, strict bool) error {
	failed := len(result.Errors) > 0 || (strict && len(result.Warnings) > 0)
	result.Valid = !failed

	if formatter.JSON() {
		if !failed {
			return formatter.Success(result)
		}
		first := append(append([]compiler.ValidationError{}, result.Errors...), result.Warnings...)[0]
		if err := formatter.Failure(first.Code, first.Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	w := formatter.Writer
	if failed {
		fmt.Fprintln(w, "✗ Validation failed")
	} else {
		fmt.Fprintln(w, "✓ Configuration valid")
	}
	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		fmt.Fprintln(w)
	}
	for _, e := range sorted(result.Errors) {
		fmt.Fprintf(w, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	for _, e := range sorted(result.Warnings) {
		fmt.Fprintf(w, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}

	if failed {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s), %d warning(s)",
			len(result.Errors), len(result.Warnings)))
	}
	return nil
}

// sorted orders problems by field so text output is stable.
func sorted(errs []compiler.ValidationError) []compiler.ValidationError {
	out := append([]compiler.ValidationError(nil), errs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
