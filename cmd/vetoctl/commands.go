package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/danielpatrickdp/veto/internal/app"
	"github.com/danielpatrickdp/veto/internal/config"
	"github.com/danielpatrickdp/veto/internal/rpc"
	"github.com/danielpatrickdp/veto/internal/tools"
)

const callTimeout = 30 * time.Second

// #region tool-commands
// toolCommands derives one subcommand per catalog tool. The catalog is built
// without services; only its names and parameter schemas are read here.
func toolCommands() []*cobra.Command {
	var out []*cobra.Command
	for _, t := range tools.NewCatalog(tools.Services{}, nil).List() {
		out = append(out, toolCommand(t))
	}
	return out
}

func toolCommand(t tools.Tool) *cobra.Command {
	c := &cobra.Command{
		Use:   commandName(t.Name),
		Short: t.Description,
		Args:  cobra.NoArgs,
	}
	for _, p := range t.Params {
		usage := p.Description
		if p.Required {
			usage += " (required)"
		}
		flag := flagName(p.Name)
		switch p.Kind {
		case tools.KindInteger:
			c.Flags().Int(flag, 0, usage)
		case tools.KindNumber:
			c.Flags().Float64(flag, 0, usage)
		case tools.KindBoolean:
			c.Flags().Bool(flag, false, usage)
		case tools.KindRange:
			c.Flags().String(flag, "", usage+" as min-max")
		default:
			c.Flags().String(flag, "", usage)
		}
	}
	c.RunE = func(cmd *cobra.Command, _ []string) error {
		args, err := collectArgs(cmd.Flags(), t.Params)
		if err != nil {
			return err
		}
		out, err := invoke(cmd.Context(), t.Name, args)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), t.Name, out)
	}
	return c
}

// collectArgs forwards only flags the user set so optional parameters keep
// their server-side defaults.
func collectArgs(fs *pflag.FlagSet, params []tools.Param) (map[string]any, error) {
	args := map[string]any{}
	for _, p := range params {
		flag := flagName(p.Name)
		if !fs.Changed(flag) {
			continue
		}
		var (
			v   any
			err error
		)
		switch p.Kind {
		case tools.KindInteger:
			v, err = fs.GetInt(flag)
		case tools.KindNumber:
			v, err = fs.GetFloat64(flag)
		case tools.KindBoolean:
			v, err = fs.GetBool(flag)
		case tools.KindRange:
			var s string
			if s, err = fs.GetString(flag); err == nil {
				v, err = parseRange(flag, s)
			}
		default:
			v, err = fs.GetString(flag)
		}
		if err != nil {
			return nil, err
		}
		args[p.Name] = v
	}
	return args, nil
}

func parseRange(flag, s string) (map[string]any, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return nil, fmt.Errorf("--%s: expected min-max, got %q", flag, s)
	}
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("--%s: min: %w", flag, err)
	}
	to, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return nil, fmt.Errorf("--%s: max: %w", flag, err)
	}
	return map[string]any{"min": from, "max": to}, nil
}

// #endregion tool-commands

// #region invoke
func invoke(ctx context.Context, tool string, args map[string]any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if remoteAddr != "" {
		client, err := rpc.Dial(remoteAddr)
		if err != nil {
			return nil, err
		}
		defer client.Close()
		return client.Invoke(ctx, tool, args)
	}

	a, err := openLocal()
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Tools.Call(ctx, tool, args)
}

func openLocal() (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, nil)
}

// #endregion invoke

// #region tools-list
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if remoteAddr == "" {
			return renderTools(cmd.OutOrStdout(), localTools(tools.NewCatalog(tools.Services{}, nil).List()))
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
		defer cancel()
		client, err := rpc.Dial(remoteAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		list, err := client.List(ctx)
		if err != nil {
			return err
		}
		return renderTools(cmd.OutOrStdout(), list)
	},
}

// #endregion tools-list

func commandName(tool string) string {
	return strings.ReplaceAll(strings.TrimPrefix(tool, "veto_"), "_", "-")
}

func flagName(param string) string {
	return strings.ReplaceAll(param, "_", "-")
}
