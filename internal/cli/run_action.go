package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/remediator/internal/remediation/executor"
)

var actionParams []string

var runActionCmd = &cobra.Command{
	Use:   "run-action [action] --param key=value",
	Short: "Run a single corrective action through the executor",
	Args:  cobra.ExactArgs(1),
	Run:   runAction,
}

func init() {
	runActionCmd.Flags().StringArrayVar(&actionParams, "param", nil, "action parameter as key=value (repeatable)")
	rootCmd.AddCommand(runActionCmd)
}

func runAction(cmd *cobra.Command, args []string) {
	cfg := mustLoad(cmd)

	params, err := parseParams(actionParams)
	if err != nil {
		fmt.Printf("Invalid parameters: %v\n", err)
		os.Exit(1)
	}

	exec := executor.New(cfg.Remediation.HandlerTimeout, nil)
	outcome := exec.ExecuteNamed(context.Background(), args[0], params)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(outcome)

	if !outcome.Success {
		os.Exit(1)
	}
}

// parseParams turns key=value pairs into a parameter map. Values that parse
// as integers, floats or booleans keep that type.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		params[key] = parseValue(value)
	}
	return params, nil
}

func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
