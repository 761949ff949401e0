// cmd_show.go - Show Command: druckt Modell-Konfiguration und Tensor-Verzeichnis
// Hauptfunktionen: newShowCmd, showHandler
package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bitllama/engine/fs/bitfile"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <weights>",
		Short: "Print a weight file's config and tensor directory",
		Args:  cobra.ExactArgs(1),
		RunE:  showHandler,
	}
}

func showHandler(_ *cobra.Command, args []string) error {
	file, err := bitfile.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	cfg := file.Header.Config
	fmt.Printf("vocab:         %d\n", cfg.Vocab)
	fmt.Printf("hidden:        %d\n", cfg.Hidden)
	fmt.Printf("inner:         %d\n", cfg.Inner)
	fmt.Printf("num_layers:    %d\n", cfg.NumLayers)
	fmt.Printf("mlp_hidden:    %d\n", cfg.MLPHidden)
	fmt.Printf("inner_lr:      %g\n", cfg.InnerLR)
	fmt.Printf("context_limit: %d\n", cfg.ContextLimit)
	fmt.Printf("eps:           %g\n", cfg.Eps)
	fmt.Println()

	var data [][]string
	for _, ti := range file.Header.Tensors {
		scale := "-"
		if ti.Scale != nil {
			scale = fmt.Sprintf("%g", *ti.Scale)
		}
		data = append(data, []string{ti.Name, ti.DType, fmt.Sprint(ti.Shape), scale, fmt.Sprint(ti.Bytes)})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"NAME", "DTYPE", "SHAPE", "SCALE", "BYTES"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
