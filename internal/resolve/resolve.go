package resolve

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/msgpulse/internal/event"
)

// Status reports how a path resolved.
type Status int

const (
	// Resolved means every component was found.
	Resolved Status = iota

	// Unresolved means a component named a field that does not exist.
	// The token is echoed back verbatim.
	Unresolved

	// Null means an accessor role or an intermediate value was absent.
	// The result is the empty string.
	Null
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	case Null:
		return "null"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the text a path rendered to and how it got there.
type Result struct {
	Text   string
	Status Status
}

// tokenPattern matches {path} tokens in already rendered text.
var tokenPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Path resolves path against inst and returns the rendered text.
func Path(schema *event.Schema, inst any, path string) string {
	return Lookup(schema, inst, path).Text
}

// Lookup resolves path against inst, whose fields are described by schema.
func Lookup(schema *event.Schema, inst any, path string) Result {
	parts := splitPath(path)
	if len(parts) == 0 {
		return echo(path)
	}

	var (
		current       any
		currentSchema *event.Schema
	)

	root := parts[0]
	acc, hasAccessor := event.AccessorOf(inst)
	key, isRoot := RootKey(root)

	if hasAccessor && isRoot {
		entity, ok := lookupEntity(acc, root, key)
		if !ok {
			return Result{Status: Null}
		}
		current = entity
		currentSchema = entity.Schema()
	} else {
		f, ok := schema.Field(root)
		if !ok {
			return echo(path)
		}
		current = f.Get(inst)
		currentSchema = schemaOf(current, f)
	}

	for _, name := range parts[1:] {
		if current == nil {
			return Result{Status: Null}
		}
		f, ok := currentSchema.Field(name)
		if !ok {
			return echo(path)
		}
		current = f.Get(current)
		currentSchema = schemaOf(current, f)
	}

	if current == nil {
		return Result{Status: Null}
	}
	return Result{Text: Format(current), Status: Resolved}
}

// Substitute replaces every {path} token in text with its resolved value.
// It is used for translated strings, which may carry tokens of their own.
func Substitute(schema *event.Schema, inst any, text string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		return Path(schema, inst, token[1:len(token)-1])
	})
}

// PlayerOf returns the principal player of inst through the Player root.
func PlayerOf(inst any) (event.Player, bool) {
	acc, ok := event.AccessorOf(inst)
	if !ok {
		return nil, false
	}
	key, _ := RootKey(PlayerRoot)
	p, ok := acc.Player(key)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// Format renders a terminal value in its natural text form.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	case event.Entity:
		if f, ok := val.Schema().Field("Name"); ok {
			return Format(f.Get(val))
		}
		return val.Schema().Name()
	default:
		return fmt.Sprint(val)
	}
}

func lookupEntity(acc event.Accessor, root, key string) (event.Entity, bool) {
	if IsPlayerRoot(root) {
		p, ok := acc.Player(key)
		if !ok || p == nil {
			return nil, false
		}
		return p, true
	}
	e, ok := acc.Controller(key)
	if !ok || e == nil {
		return nil, false
	}
	return e, true
}

// schemaOf picks the schema describing v: its own when v is an Entity,
// otherwise the nested schema declared on the field that produced it.
func schemaOf(v any, f event.Field) *event.Schema {
	if e, ok := v.(event.Entity); ok {
		return e.Schema()
	}
	return f.Nested
}

func splitPath(path string) []string {
	raw := strings.Split(path, ".")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func echo(path string) Result {
	return Result{Text: "{" + path + "}", Status: Unresolved}
}
