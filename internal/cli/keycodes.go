package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scancheck/internal/hid"
)

// KeycodeInfo describes one named keycode.
type KeycodeInfo struct {
	Name     string `json:"name"`
	Usage    uint8  `json:"usage"`
	Modifier bool   `json:"modifier"`
}

// NewKeycodesCommand creates the keycodes command.
func NewKeycodesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keycodes",
		Short: "List keycode names usable in scenarios",
		Long: `List every keycode name accepted in keymaps and assertions,
ordered by HID usage. Names are matched case-insensitively.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeycodes(rootOpts, cmd)
		},
	}
}

func runKeycodes(opts *RootOptions, cmd *cobra.Command) error {
	names := hid.KeycodeNames()
	infos := make([]KeycodeInfo, 0, len(names))
	for _, name := range names {
		k, err := hid.ParseKeycode(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "keycode table is inconsistent", err)
		}
		infos = append(infos, KeycodeInfo{Name: name, Usage: uint8(k), Modifier: k.IsModifier()})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: infos})
	}

	w := cmd.OutOrStdout()
	for _, info := range infos {
		kind := ""
		if info.Modifier {
			kind = " (modifier)"
		}
		fmt.Fprintf(w, "0x%02X  %s%s\n", info.Usage, info.Name, kind)
	}
	return nil
}
