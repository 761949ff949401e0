// cmd_run.go - Run Command Handler
// Hauptfunktionen: newRunCmd, runHandler
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitllama/engine/config"
	"github.com/bitllama/engine/envconfig"
	"github.com/bitllama/engine/fs/bitfile"
	"github.com/bitllama/engine/history"
	"github.com/bitllama/engine/runner"
	"github.com/bitllama/engine/sample"
	"github.com/bitllama/engine/tokenizer/bytelevel"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <weights> [prompt...]",
		Short: "Load a weight file and generate from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runHandler,
	}

	defaults := config.Default()
	runCmd.Flags().Float32("temperature", defaults.Temperature, "sampling temperature (0 = greedy)")
	runCmd.Flags().Int("top-k", defaults.TopK, "top-k filter (0 disables)")
	runCmd.Flags().Float32("top-p", defaults.TopP, "nucleus filter (0 or 1 disables)")
	runCmd.Flags().Int64("seed", defaults.Seed, "sampling RNG seed")
	runCmd.Flags().Int("max-new-tokens", 256, "maximum tokens to generate")
	runCmd.Flags().String("replay", "", "replay a previously recorded run's sampling config by id")
	runCmd.Flags().Bool("no-history", false, "don't record this run in the history database")

	return runCmd
}

func runHandler(cmd *cobra.Command, args []string) error {
	weightsPath := args[0]
	prompt := strings.Join(args[1:], " ")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	temperature, _ := cmd.Flags().GetFloat32("temperature")
	topK, _ := cmd.Flags().GetInt("top-k")
	topP, _ := cmd.Flags().GetFloat32("top-p")
	seed, _ := cmd.Flags().GetInt64("seed")
	maxNew, _ := cmd.Flags().GetInt("max-new-tokens")
	replayID, _ := cmd.Flags().GetString("replay")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	// Flags win when the caller set them explicitly; otherwise fall back
	// to the on-disk config, since the flag defaults above already equal
	// config.Default() and can't be told apart from "unset" on their own.
	samplingCfg := sample.Config{Temperature: cfg.Temperature, TopK: cfg.TopK, TopP: cfg.TopP, Seed: cfg.Seed}
	if cmd.Flags().Changed("temperature") {
		samplingCfg.Temperature = temperature
	}
	if cmd.Flags().Changed("top-k") {
		samplingCfg.TopK = topK
	}
	if cmd.Flags().Changed("top-p") {
		samplingCfg.TopP = topP
	}
	if cmd.Flags().Changed("seed") {
		samplingCfg.Seed = seed
	}

	var historyDB *history.DB
	if !noHistory {
		if dir, dirErr := config.Dir(); dirErr == nil {
			if err := ensureDir(dir); err == nil {
				if db, openErr := history.Open(filepath.Join(dir, "history.db")); openErr == nil {
					historyDB = db
					defer historyDB.Close()
				}
			}
		}
	}

	if replayID != "" && historyDB != nil {
		run, err := historyDB.FindRun(replayID)
		if err != nil {
			return err
		}
		samplingCfg = run.Sampling
		if prompt == "" {
			prompt = run.Prompt
		}
	}

	m, _, tokenizerBlob, err := bitfile.Load(weightsPath, bitfile.LoadOptions{NumThreads: int(envconfig.NumThreads())})
	if err != nil {
		return err
	}
	defer m.Close()

	tok := bytelevel.NewFromBlob(tokenizerBlob)
	promptIDs, err := tok.Encode(prompt)
	if err != nil {
		return err
	}

	sampler := sample.New(samplingCfg)
	seq := runner.NewSequence(m)
	opts := runner.Options{MaxNewTokens: maxNew, BOSToken: tok.BOS(), StopTokens: runner.StopTokensFrom(tok)}

	var wrap displayResponseState
	onToken := func(id int32) bool {
		text, decErr := tok.Decode([]int32{id})
		if decErr != nil {
			return false
		}
		displayResponse(text, &wrap)
		return true
	}

	generated, genErr := runner.Generate(nil, m, seq, promptIDs, sampler, opts, onToken)
	fmt.Println()

	if historyDB != nil {
		_ = historyDB.RecordRun(history.Run{
			ID:            seq.ID.String(),
			WeightsPath:   weightsPath,
			Sampling:      samplingCfg,
			Prompt:        prompt,
			EmittedTokens: len(generated),
		})
	}

	if genErr != nil && genErr != runner.ErrCancelled {
		return genErr
	}
	return nil
}
