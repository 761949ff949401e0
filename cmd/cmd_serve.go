// cmd_serve.go - Serve Command: startet die optionale HTTP-Oberflaeche
// Hauptfunktionen: newServeCmd, runServer
package cmd

import (
	"fmt"
	"net"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bitllama/engine/config"
	"github.com/bitllama/engine/envconfig"
	"github.com/bitllama/engine/history"
	"github.com/bitllama/engine/server"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.ExactArgs(0),
		RunE:  runServer,
	}
	serveCmd.Flags().Int("port", 11535, "port to listen on")
	serveCmd.Flags().Bool("no-history", false, "don't record generation runs to the history database")
	return serveCmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetInt("port")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	var historyDB *history.DB
	if !noHistory {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		if err := ensureDir(dir); err != nil {
			return err
		}
		db, err := history.Open(filepath.Join(dir, "history.db"))
		if err != nil {
			return err
		}
		defer db.Close()
		historyDB = db
	}

	engine := server.NewEngine(int(envconfig.NumThreads()))
	router := server.NewRouter(engine, historyDB)

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return err
	}

	fmt.Printf("bitllama serving on %s\n", ln.Addr())
	if err := http.Serve(ln, router); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
