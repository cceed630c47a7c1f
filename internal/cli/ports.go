package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/touchy/internal/ir"
	"github.com/roach88/touchy/internal/midi"
)

// listPorts is swapped out in tests, where no MIDI driver is registered.
var listPorts = midi.OutPortNames

// PortsResult is the json payload of the ports command.
type PortsResult struct {
	Ports []string `json:"ports"`
}

// NewPortsCommand creates the ports command.
func NewPortsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List MIDI output ports",
		Long: `List the MIDI output ports the system driver exposes.

Any of the names (or a unique part of one) can be passed to run --port.
The special name "-" prints messages to stdout instead.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			names := listPorts()
			if formatter.JSON() {
				if names == nil {
					names = []string{}
				}
				return formatter.Success(PortsResult{Ports: names})
			}
			if len(names) == 0 {
				fmt.Fprintln(formatter.Writer, "No MIDI output ports found.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(formatter.Writer, name)
			}
			return nil
		},
	}
}

// Control is one entry of the controls listing.
type Control struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

// NewControlsCommand creates the controls command.
func NewControlsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "controls",
		Short: "List control change names",
		Long: `List the control change names a control rule's control_type accepts,
with their CC numbers.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			controls := make([]Control, 0, len(ir.ControlNames))
			for _, name := range ir.ControlNames {
				code, _ := ir.LookupControl(name)
				controls = append(controls, Control{Name: name, Code: code})
			}
			if formatter.JSON() {
				return formatter.Success(controls)
			}
			for _, c := range controls {
				fmt.Fprintf(formatter.Writer, "%3d  %s\n", c.Code, c.Name)
			}
			return nil
		},
	}
}
