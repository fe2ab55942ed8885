package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/chessinsight/chessinsight/pkg/api/types"
	"github.com/chessinsight/chessinsight/pkg/cli/internal/output"
	"github.com/chessinsight/chessinsight/pkg/gateway"
	"github.com/chessinsight/chessinsight/pkg/uci"
	"github.com/spf13/cobra"
)

var (
	analyseFEN   string
	analyseDepth int
)

var analyseCmd = &cobra.Command{
	Use:     "analyse",
	Aliases: []string{"analyze"},
	Short:   "Evaluate one position and exit",
	Long: `Start the engine, evaluate one position, stop the engine and print the
score as "<white> <black>". Centipawn scores print as integers, mate scores
as #N.

The engine is stopped even when the analysis fails.`,
	Example: `  chessinsight analyse
  chessinsight analyse --fen "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1" --depth 5
  chessinsight analyse --engine ./stockfish --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(settings, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()

		pos, err := gateway.ParsePosition(analyseFEN)
		if err != nil {
			return err
		}
		limit := gateway.SearchLimit{Depth: settings.Engine.DefaultDepth}
		if cmd.Flags().Changed("depth") {
			limit.Depth = analyseDepth
		}
		if limit.Depth > settings.Engine.MaxDepth {
			return fmt.Errorf("%w: depth must be at most %d, got %d",
				gateway.ErrInvalidLimit, settings.Engine.MaxDepth, limit.Depth)
		}
		if err := limit.Validate(); err != nil {
			return err
		}

		eval, err := analyseOnce(cmd.Context(), settings.Engine.Path, pos, limit, engineOptions(settings, log))
		if err != nil {
			return err
		}
		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), types.NewAnalysisResponse(eval))
		}
		return printScores(cmd.OutOrStdout(), eval)
	},
}

// analyseOnce runs a single analysis on a fresh engine and always stops it.
func analyseOnce(ctx context.Context, path string, pos gateway.Position, limit gateway.SearchLimit,
	opts []gateway.Option,
) (eval *gateway.Evaluation, err error) {
	eng, err := gateway.Start(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if stopErr := eng.Stop(); stopErr != nil && err == nil {
			err = fmt.Errorf("stop engine: %w", stopErr)
		}
	}()
	return eng.Analyse(ctx, pos, limit)
}

func printScores(w io.Writer, eval *gateway.Evaluation) error {
	_, err := fmt.Fprintf(w, "%s %s\n", plainScore(eval.White), plainScore(eval.Black))
	return err
}

func plainScore(s uci.Score) string {
	if cp, err := s.Centipawns(); err == nil {
		return fmt.Sprint(cp)
	}
	return s.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	f := analyseCmd.Flags()
	f.StringVar(&analyseFEN, "fen", gateway.StartFEN, "position to evaluate")
	f.IntVarP(&analyseDepth, "depth", "d", 0, "search depth (default: engine.defaultDepth)")
	f.StringVar(&enginePath, "engine", "", "UCI engine executable (default: /usr/bin/stockfish)")
	rootCmd.AddCommand(analyseCmd)
}
