package cli

import (
	"fmt"
	"os/exec"
	"sort"

	"github.com/chessinsight/chessinsight/pkg/cli/internal/output"
	"github.com/chessinsight/chessinsight/pkg/config"
	"github.com/spf13/cobra"
)

// ConfigOutput is the JSON form of the config command.
type ConfigOutput struct {
	File     string            `json:"file,omitempty"`
	Settings *config.Settings  `json:"settings"`
	Sources  map[string]string `json:"sources"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective settings",
	Long: `Show the settings serve and analyse would run with, after flags,
environment, .env and the settings file have been applied, and which layer
set each value.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if _, err := exec.LookPath(s.Engine.Path); err != nil {
			output.Warn(cmd.ErrOrStderr(), "engine executable %s not found", s.Engine.Path)
		}

		sources := make(map[string]string, len(s.Sources))
		for k, v := range s.Sources {
			sources[k] = v
		}
		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), ConfigOutput{File: s.File, Settings: s, Sources: sources})
		}

		out := cmd.OutOrStdout()
		if s.File != "" {
			fmt.Fprintf(out, "# file: %s\n", s.File)
		}
		if err := output.YAML(out, s); err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Fprintln(out, "# all values are defaults")
			return nil
		}

		keys := make([]string, 0, len(sources))
		for k := range sources {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "# sources")
		tw := output.Table(out)
		for _, k := range keys {
			fmt.Fprintf(tw, "#   %s\t%s\n", k, sources[k])
		}
		return tw.Flush()
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for the settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(config.SchemaJSON())
		return err
	},
}

func init() {
	f := configCmd.Flags()
	f.IntVarP(&port, "port", "p", 8000, "HTTP listen port")
	f.StringVar(&host, "host", "0.0.0.0", "HTTP listen address")
	f.StringVar(&enginePath, "engine", "", "UCI engine executable (default: /usr/bin/stockfish)")
	f.StringVar(&corsOrigins, "cors-origins", "", "comma separated list of allowed CORS origins")
	configCmd.AddCommand(configSchemaCmd)
	rootCmd.AddCommand(configCmd)
}
