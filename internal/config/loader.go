// Package config loads msgpulse settings and feature files.
//
// Process settings come from environment variables (Settings). Feature
// files live in a config directory, one file per feature, in any of the
// formats CUE, JSON, JSONC or YAML. Each file is unified with an embedded
// closed CUE schema that supplies defaults and rejects unknown keys.
package config

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Feature file base names.
const (
	FileEventMessages  = "event_messages"
	FileChatBroadcast  = "chat_broadcast"
	FileCustomCommands = "custom_commands"
	FileDeadShowImage  = "dead_show_image"
)

// Extensions are tried in this order; the first existing file wins.
var Extensions = []string{".cue", ".json", ".jsonc", ".yaml", ".yml"}

//go:embed schema.cue
var schemaSource string

//go:embed examples
var examples embed.FS

// Error is a feature file that failed to parse or validate.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Loader compiles feature files against the embedded schema.
// A Loader is not safe for concurrent use.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value

	// WriteExamples writes the bundled example file for every feature
	// whose file is missing.
	WriteExamples bool
}

// NewLoader compiles the embedded schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	return &Loader{ctx: ctx, schema: schema}, nil
}

// Load reads every feature file in dir. Problems in one file do not stop
// the others; all of them are joined into the returned error.
func (l *Loader) Load(dir string) (*Config, error) {
	cfg := &Config{Sources: map[string]string{}}
	var errs []error

	collect := func(name, source string, err error) {
		cfg.Sources[name] = source
		if err != nil {
			errs = append(errs, err)
		}
	}

	var (
		src string
		err error
	)
	cfg.EventMessages, src, err = loadFeature[EventMessages](l, dir, FileEventMessages, "#EventMessages")
	collect(FileEventMessages, src, err)
	cfg.ChatBroadcast, src, err = loadFeature[ChatBroadcast](l, dir, FileChatBroadcast, "#ChatBroadcast")
	collect(FileChatBroadcast, src, err)
	cfg.CustomCommands, src, err = loadFeature[CustomCommands](l, dir, FileCustomCommands, "#CustomCommands")
	collect(FileCustomCommands, src, err)
	cfg.DeadShowImage, src, err = loadFeature[DeadShowImage](l, dir, FileDeadShowImage, "#DeadShowImage")
	collect(FileDeadShowImage, src, err)

	return cfg, errors.Join(errs...)
}

// LoadEventMessages reads only the event rules file.
func (l *Loader) LoadEventMessages(dir string) (EventMessages, error) {
	cfg, _, err := loadFeature[EventMessages](l, dir, FileEventMessages, "#EventMessages")
	return cfg, err
}

// Parse validates one feature document given in memory. ext selects the
// format (".yaml" / ".yml" for YAML, anything else is read as CUE, which
// also accepts JSON and JSON with comments).
func (l *Loader) Parse(name, ext string, data []byte, out any) error {
	def, ok := definitions[name]
	if !ok {
		return fmt.Errorf("unknown feature %q", name)
	}
	return l.decode(name+ext, ext, data, def, out)
}

var definitions = map[string]string{
	FileEventMessages:  "#EventMessages",
	FileChatBroadcast:  "#ChatBroadcast",
	FileCustomCommands: "#CustomCommands",
	FileDeadShowImage:  "#DeadShowImage",
}

func loadFeature[T any](l *Loader, dir, name, def string) (T, string, error) {
	var out T

	path, data, err := findFeature(dir, name)
	if err != nil {
		return out, "", &Error{Path: filepath.Join(dir, name), Message: err.Error()}
	}

	if path == "" && l.WriteExamples {
		if err := writeExample(dir, name); err != nil {
			return out, "", err
		}
		if path, data, err = findFeature(dir, name); err != nil {
			return out, "", &Error{Path: filepath.Join(dir, name), Message: err.Error()}
		}
	}
	if path == "" {
		err := l.decode(name, ".cue", []byte("{}"), def, &out)
		return out, "", err
	}

	err = l.decode(path, filepath.Ext(path), data, def, &out)
	return out, path, err
}

func findFeature(dir, name string) (string, []byte, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		return path, data, nil
	}
	return "", nil, nil
}

func (l *Loader) decode(path, ext string, data []byte, def string, out any) error {
	var doc cue.Value
	switch ext {
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return &Error{Path: path, Message: err.Error()}
		}
		if raw == nil {
			raw = map[string]any{}
		}
		doc = l.ctx.Encode(raw)
	default:
		doc = l.ctx.CompileBytes(data, cue.Filename(path))
	}
	if err := doc.Err(); err != nil {
		return cueError(path, err)
	}

	v := l.schema.LookupPath(cue.ParsePath(def)).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return cueError(path, err)
	}
	if err := v.Decode(out); err != nil {
		return cueError(path, err)
	}
	return nil
}

// cueError keeps the first CUE error and its position.
func cueError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Path: path, Message: err.Error()}
	}
	first := errs[0]
	e := &Error{Path: path, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		for _, pos := range positions {
			if pos.Filename() == path {
				e.Pos = pos
				break
			}
		}
	}
	return e
}

// writeExample copies the bundled example for name into dir.
func writeExample(dir, name string) error {
	entries, err := fs.ReadDir(examples, "examples")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		base := entry.Name()
		if base[:len(base)-len(filepath.Ext(base))] != name {
			continue
		}
		data, err := fs.ReadFile(examples, "examples/"+base)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, base), data, 0o644); err != nil {
			return fmt.Errorf("write example %s: %w", base, err)
		}
		return nil
	}
	return fmt.Errorf("no example for %s", name)
}

// Example returns the bundled example document for a feature and its
// file name.
func Example(name string) (string, []byte, error) {
	entries, err := fs.ReadDir(examples, "examples")
	if err != nil {
		return "", nil, err
	}
	for _, entry := range entries {
		base := entry.Name()
		if base[:len(base)-len(filepath.Ext(base))] == name {
			data, err := fs.ReadFile(examples, "examples/"+base)
			return base, data, err
		}
	}
	return "", nil, fmt.Errorf("no example for %s", name)
}
