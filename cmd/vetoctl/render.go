package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/rpc"
	"github.com/danielpatrickdp/veto/internal/tools"
)

var (
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	msgStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	bodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86B"))
	paramStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FD88F"))
)

// #region render
// render prints a tool payload: the message in a box, then the JSON body.
func render(w io.Writer, tool string, out any) error {
	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if jsonOut {
		_, err := fmt.Fprintln(w, string(body))
		return err
	}

	var generic map[string]any
	_ = json.Unmarshal(body, &generic)
	fmt.Fprintln(w, headStyle.Render(tool))
	if msg, ok := generic["message"].(string); ok && msg != "" {
		fmt.Fprintln(w, msgStyle.Render(msg))
	}
	_, err = fmt.Fprintln(w, bodyStyle.Render(string(body)))
	return err
}

func renderError(err error) string {
	if jsonOut {
		body, _ := json.Marshal(tools.NewErrorPayload(err))
		return string(body)
	}
	return errStyle.Render("error") + " " + kindStyle.Render("["+string(apperr.KindOf(err))+"]") + " " + err.Error()
}

// #endregion render

// #region render-tools
// localTools describes the catalog in the same shape the gRPC List returns.
func localTools(list []tools.Tool) []rpc.ToolInfo {
	out := make([]rpc.ToolInfo, 0, len(list))
	for _, t := range list {
		info := rpc.ToolInfo{Name: t.Name, Description: t.Description}
		for _, p := range t.Params {
			info.Params = append(info.Params, rpc.ParamInfo{Name: p.Name, Kind: string(p.Kind), Required: p.Required})
		}
		out = append(out, info)
	}
	return out
}

func renderTools(w io.Writer, list []rpc.ToolInfo) error {
	if jsonOut {
		return writeJSON(w, list)
	}
	for _, t := range list {
		fmt.Fprintf(w, "%s  %s\n", headStyle.Render(commandName(t.Name)), t.Description)
		var params []string
		for _, p := range t.Params {
			label := "--" + flagName(p.Name) + ":" + p.Kind
			if !p.Required {
				label = "[" + label + "]"
			}
			params = append(params, paramStyle.Render(label))
		}
		if len(params) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(params, " "))
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = fmt.Fprintln(w, string(body))
	return err
}

// #endregion render-tools
