package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/server"
	"document-qa/internal/session"
	"document-qa/internal/tui"
)

type configLoader func() (*config.Config, error)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newIngestCmd(load configLoader) *cobra.Command {
	var rebuild, dryRun bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load, chunk and index the configured documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			chunks, err := loadChunks(cfg)
			if err != nil {
				return err
			}
			if dryRun {
				return checkChunks(chunks, cfg.RAG.ChunkOverlap)
			}

			ix, _, err := openIndex(ctx, cfg)
			if err != nil {
				return err
			}
			defer ix.Close()
			rebuilt, err := ix.Sync(ctx, chunks, rebuild)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks (rebuilt: %t)\n", len(chunks), rebuilt)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "clear the store and embed every chunk again")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the chunks without embedding or storing them")
	return cmd
}

type chunkSummary struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Span      [2]int `json:"span"`
	Content   string `json:"content"`
}

// checkChunks prints the chunks and verifies that, per document, the
// overlapping windows rebuild a text as long as the document.
func checkChunks(chunks []models.Chunk, overlap int) error {
	summaries := make([]chunkSummary, len(chunks))
	for i, c := range chunks {
		summaries[i] = chunkSummary{ID: c.ID, Reference: c.Reference(), Span: [2]int{c.Start, c.End}, Content: c.Content}
	}
	helper.PrettyPrint(summaries)

	bySource := chunker.BySource(chunks)
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, source := range sources {
		docChunks := bySource[source]
		rebuilt := []rune(chunker.Reconstruct(docChunks, overlap))
		if want := docChunks[len(docChunks)-1].End; len(rebuilt) != want {
			return fmt.Errorf("chunks of %s rebuild %d characters, expected %d", source, len(rebuilt), want)
		}
		log.Info().Str("source", source).Int("chunks", len(docChunks)).Msg("Chunks cover document")
	}
	return nil
}

func newAskCmd(load configLoader) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			reply := a.session.Ask(ctx, strings.Join(args, " "))
			printReply(cmd.OutOrStdout(), reply, showSources)
			if reply.Failed {
				return errors.New("question could not be answered")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", true, "print the pages the answer was drawn from")
	return cmd
}

func newChatCmd(load configLoader) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat about the documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			var logFile *os.File
			if !plain {
				// the full-screen UI owns the terminal, logs go to a file
				if err := helper.CreateFolder(cfg.Store.Path); err != nil {
					return err
				}
				logFile, err = os.OpenFile(filepath.Join(cfg.Store.Path, "docqa.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer logFile.Close()
				setupLogger(cfg.Log, logFile)
			}

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if plain {
				return runREPL(ctx, a.session, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			title := fmt.Sprintf("docqa | %d document(s) | %s", len(cfg.Documents), cfg.InferenceLLM.Model)
			return tui.Run(ctx, a.session, title)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "line-based prompt instead of the full-screen UI")
	return cmd
}

// runREPL reads one question per line until EOF or "exit"
func runREPL(ctx context.Context, sess *session.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "exit", "quit":
			return nil
		}
		printReply(out, sess.Ask(ctx, line), true)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printReply(w io.Writer, reply session.Reply, showSources bool) {
	fmt.Fprintln(w, reply.Text)
	if showSources && reply.Sources != "" {
		fmt.Fprintf(w, "\nSources:\n%s\n", reply.Sources)
	}
}

func newServeCmd(load configLoader) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question endpoint over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			gin.SetMode(gin.ReleaseMode)
			router := server.NewRouter(server.NewHandler(a.session, a.index))
			return server.Run(ctx, cfg.Server.Addr, router)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func newBackupCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import the encrypted chromem collection",
	}
	run := func(export bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Store.Type != config.StoreChromem {
				return fmt.Errorf("backup is only supported for the %s store", config.StoreChromem)
			}
			ctx, stop := signalContext()
			defer stop()

			ix, manager, err := openIndex(ctx, cfg)
			if err != nil {
				return err
			}
			defer ix.Close()

			file := ""
			if len(args) > 0 {
				file = args[0]
			}
			if export {
				return manager.Export(ctx, file)
			}
			if err := manager.Import(ctx, file); err != nil {
				return err
			}
			n, err := ix.Count(ctx)
			if err != nil {
				return err
			}
			// the imported collection may come from other documents
			log.Warn().Int("chunks", n).Msg("Imported collection, run ingest --rebuild if the documents differ")
			return nil
		}
	}
	cmd.AddCommand(
		&cobra.Command{Use: "export [file]", Short: "Write the collection to an encrypted file", Args: cobra.MaximumNArgs(1), RunE: run(true)},
		&cobra.Command{Use: "import [file]", Short: "Replace the collection from an encrypted file", Args: cobra.MaximumNArgs(1), RunE: run(false)},
	)
	return cmd
}
