package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/msgpulse/internal/i18n"
	"github.com/roach88/msgpulse/internal/message"
	"github.com/roach88/msgpulse/internal/resolve"
	"github.com/roach88/msgpulse/internal/sim"
	"github.com/roach88/msgpulse/internal/template"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Catalog string
	Event   string
	Fields  string            // JSON object
	Players string            // roster file
	Roles   map[string]string // accessor key -> player id
	Locales string            // translations directory
	As      string            // render as this player sees it
}

// TokenResult is how one template token resolved.
type TokenResult struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Text   string `json:"text"`
}

// RenderResult is the output of the render command.
type RenderResult struct {
	Event      string        `json:"event"`
	Template   string        `json:"template"`
	Text       string        `json:"text"`
	Translated bool          `json:"translated"`
	Tokens     []TokenResult `json:"tokens"`
	Warning    string        `json:"warning,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a message template against a sample event",
		Long: `Render a message template against one event instance.

The event is built from the catalog, --fields (a JSON object) and
accessor roles that name players from a roster file. With --as the text
is shown as that player would receive it: chat. keys are translated
from --locales and tokens in the translation are filled again.

Examples:
  msgpulse render '{Attacker.Name} killed {Player.Name} with {Weapon}' \
    --catalog ./catalog --event EventPlayerDeath \
    --players players.yaml --role userid=1 --role attacker=2 \
    --fields '{"Weapon": "awp"}'
  msgpulse render chat.kill --catalog ./catalog --event EventPlayerDeath \
    --players players.yaml --role userid=1 --locales ./translations --as 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "event catalog (.cue file or directory)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "event name (case-insensitive)")
	cmd.Flags().StringVar(&opts.Fields, "fields", "", "event fields as a JSON object")
	cmd.Flags().StringVar(&opts.Players, "players", "", "player roster (YAML or JSON list)")
	cmd.Flags().StringToStringVar(&opts.Roles, "role", nil, "accessor role as key=player-id (repeatable)")
	cmd.Flags().StringVar(&opts.Locales, "locales", "", "translations directory")
	cmd.Flags().StringVar(&opts.As, "as", "", "player id to render for")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func runRender(opts *RenderOptions, src string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cat, err := LoadCatalog(opts.Catalog)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}

	players, err := loadPlayers(cat.Registry, opts.Players)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
	}
	fields, err := parseFields(opts.Fields)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
	}
	roles, err := sim.RolesFrom(opts.Roles, players)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
	}
	desc, inst, err := cat.Registry.NewEvent(opts.Event, roles, fields, players)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
	}

	tmpl := template.Compile(src)
	schema := desc.Schema()
	result := RenderResult{
		Event:    desc.Name(),
		Template: src,
		Tokens:   []TokenResult{},
	}
	if w := tmpl.Truncation(); w != nil {
		result.Warning = w.String()
	}
	for _, path := range tmpl.Paths() {
		res := resolve.Lookup(schema, inst, path)
		result.Tokens = append(result.Tokens, TokenResult{Path: path, Status: res.Status.String(), Text: res.Text})
	}
	result.Text = tmpl.Render(func(path string) string {
		return resolve.Path(schema, inst, path)
	})

	if opts.As != "" && message.IsTranslationKey(result.Text) {
		p, ok := players[opts.As]
		if !ok {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("--as: unknown player %q", opts.As))
		}
		bundle, err := loadBundle(opts.Locales, opts.Settings.DefaultLocale)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
		}
		result.Text = resolve.Substitute(schema, inst, bundle.Localize(p, result.Text))
		result.Translated = true
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, result.Text)
	if result.Warning != "" {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", result.Warning)
	}
	for _, tok := range result.Tokens {
		formatter.VerboseLog("  {%s} -> %q (%s)", tok.Path, tok.Text, tok.Status)
	}
	return nil
}

// loadPlayers reads a roster file into players keyed by id. An empty path
// means no players.
func loadPlayers(reg *sim.Registry, path string) (map[string]*sim.Player, error) {
	players := map[string]*sim.Player{}
	if path == "" {
		return players, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read players: %w", err)
	}
	specs, err := sim.ParsePlayers(data)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		p, err := reg.NewPlayer(spec)
		if err != nil {
			return nil, err
		}
		if _, dup := players[p.ID()]; dup {
			return nil, fmt.Errorf("duplicate player id %q", p.ID())
		}
		players[p.ID()] = p
	}
	return players, nil
}

// parseFields decodes a JSON object of event fields, keeping numbers exact.
func parseFields(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("--fields: %w", err)
	}
	return fields, nil
}

// loadBundle reads translations from dir; an empty dir gives a bundle
// without translations.
func loadBundle(dir, defaultLocale string) (*i18n.Bundle, error) {
	if dir == "" {
		return i18n.NewBundle(defaultLocale)
	}
	return i18n.Load(os.DirFS(dir), defaultLocale)
}
