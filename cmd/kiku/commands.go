package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kiku/internal/cli"
	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/fileid"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/server"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// buildSearchQuery joins the positional arguments so quoting a multi-word query is optional.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// queryFlags are the retrieval overrides shared by search and ask.
type queryFlags struct {
	topK      int
	threshold float64
	minWords  int
	serverURL string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "maximum number of results (default from config)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "minimum similarity score (default from config)")
	cmd.Flags().IntVar(&f.minWords, "min-words", 0, "minimum words in a matched record (default from config)")
	cmd.Flags().StringVar(&f.serverURL, "server", "", "query a running kiku server instead of the local store")
}

// query builds a SearchQuery; flags left unset fall through to configured defaults.
func (f *queryFlags) query(cmd *cobra.Command, args []string) *models.SearchQuery {
	q := &models.SearchQuery{Query: buildSearchQuery(args), TopK: f.topK}
	if cmd.Flags().Changed("threshold") {
		th := f.threshold
		q.ScoreThreshold = &th
	}
	if cmd.Flags().Changed("min-words") {
		n := f.minWords
		q.MinWords = &n
	}
	return q
}

func newIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index <path>...",
		Short: "Extract, embed and save files or directories as a new index snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := initializeComponents(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			start := time.Now()
			res, err := components.Indexer.Build(cmd.Context(), args...)
			if err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}
			return cli.WriteBuildSummary(cmd.OutOrStdout(), cli.NewBuildSummary(res, time.Since(start)), a.format)
		},
	}
}

func newExtractCmd(a *app) *cobra.Command {
	var normalizedNames bool
	cmd := &cobra.Command{
		Use:   "extract <path>",
		Short: "Print the records extracted from a file or directory without embedding them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if normalizedNames {
				return writeNormalizedNames(cmd, a, args[0])
			}
			components, err := initializeComponents(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			res, err := components.Indexer.Ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, f := range res.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", f.Error())
			}
			return cli.WriteRecords(cmd.OutOrStdout(), res.Records, a.format)
		},
	}
	cmd.Flags().BoolVar(&normalizedNames, "normalized-names", false, "print the canonical name of each media file instead of extracting")
	return cmd
}

// writeNormalizedNames lists "original -> canonical" for media files at path.
func writeNormalizedNames(cmd *cobra.Command, a *app, path string) error {
	paths := []string{path}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		paths = paths[:0]
		for _, e := range entries {
			if !e.IsDir() {
				paths = append(paths, filepath.Join(path, e.Name()))
			}
		}
	}
	type pair struct {
		Original   string `json:"original"`
		Normalized string `json:"normalized"`
	}
	var out []pair
	for _, p := range paths {
		if f, ok := extract.FormatOf(p); !ok || !f.IsMedia() {
			continue
		}
		name := filepath.Base(p)
		out = append(out, pair{Original: name, Normalized: fileid.NormalizeMediaName(name)})
	}
	if a.format == cli.OutputJSON {
		if out == nil {
			out = []pair{}
		}
		return writeJSONTo(cmd, out)
	}
	for _, p := range out {
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", p.Original, p.Normalized)
	}
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the records most similar to a query",
		Long: `Search embeds the query and returns the closest records by cosine similarity.
The query is all remaining arguments joined by spaces; quotes are optional.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := flags.query(cmd, args)
			if flags.serverURL != "" {
				response, err := searchViaHTTP(cmd.Context(), flags.serverURL, q)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				return cli.WriteSearchResults(cmd.OutOrStdout(), response, a.format)
			}

			components, err := initializeComponents(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()
			response, err := components.Engine.Retrieve(cmd.Context(), q)
			if err != nil {
				return searchError(err)
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), response, a.format)
		},
	}
	flags.register(cmd)
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed records using a local chat model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := flags.query(cmd, args)
			if flags.serverURL != "" {
				response, err := askViaHTTP(cmd.Context(), flags.serverURL, q)
				if err != nil {
					return fmt.Errorf("ask failed: %w", err)
				}
				return cli.WriteAnswer(cmd.OutOrStdout(), response, a.format)
			}

			components, err := initializeComponents(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()
			retrieved, err := components.Engine.Retrieve(cmd.Context(), q)
			if err != nil {
				return searchError(err)
			}
			text, err := components.Answerer.Answer(cmd.Context(), retrieved.Query, retrieved.Results)
			if err != nil {
				return err
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), &models.AnswerResponse{
				Query:   retrieved.Query,
				Answer:  text,
				Sources: retrieved.Results,
			}, a.format)
		},
	}
	flags.register(cmd)
	return cmd
}

func searchError(err error) error {
	if errors.Is(err, storage.ErrStoreNotFound) {
		return fmt.Errorf("%w; run kiku index <path> first", err)
	}
	return fmt.Errorf("search failed: %w", err)
}

// startWatcher watches dirs and rebuilds the store from them after each burst of changes.
// When no store exists yet, a first build is scheduled immediately.
func startWatcher(ctx context.Context, a *app, components *Components, dirs []string) (*watcher.Watcher, error) {
	rebuild := func(ctx context.Context) {
		start := time.Now()
		res, err := components.Indexer.Build(ctx, dirs...)
		if err != nil {
			a.logger.Error("rebuild failed", zap.Error(err))
			return
		}
		a.logger.Info("rebuild complete",
			zap.Int("files", res.Files),
			zap.Int("records", len(res.Records)),
			zap.Int("failures", len(res.Failures)),
			zap.Duration("took", time.Since(start)))
	}
	w := watcher.NewWatcher(dirs,
		append(extract.SupportedExtensions(), ".json"),
		a.cfg.Watch.RecursiveOrDefault(),
		rebuild,
		watcher.WithDebounce(a.cfg.Watch.Debounce),
		watcher.WithExclude(a.cfg.Store.Path),
		watcher.WithLogger(a.logger))
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	if _, err := storage.Stat(a.cfg.Store.Path); errors.Is(err, storage.ErrStoreNotFound) {
		w.Trigger()
	}
	return w, nil
}

func newServeCmd(a *app) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, rebuilding the index when watched directories change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := initializeComponents(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var watch server.WatchService
			if !noWatch && len(a.cfg.Watch.Directories) > 0 {
				w, err := startWatcher(ctx, a, components, a.cfg.Watch.Directories)
				if err != nil {
					return err
				}
				defer w.Stop()
				watch = w
			}

			srv := server.NewServer(components.Engine, components.Answerer, watch, a.cfg, a.logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch configured directories")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]...",
		Short: "Rebuild the index whenever files under the given directories change",
		Long: `Watch rebuilds a complete snapshot from the watched directories after each
burst of changes settles. Without arguments the directories from the config are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := a.cfg.Watch.Directories
			if len(args) > 0 {
				dirs = dirs[:0:0]
				for _, d := range args {
					abs, err := filepath.Abs(d)
					if err != nil {
						return err
					}
					dirs = append(dirs, abs)
				}
			}
			if len(dirs) == 0 {
				return errors.New("no directories to watch; pass them as arguments or set watch.directories")
			}
			components, err := initializeComponents(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			w, err := startWatcher(ctx, a, components, dirs)
			if err != nil {
				return err
			}
			defer w.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", strings.Join(dirs, ", "))
			<-ctx.Done()
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted index and active configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				st  *server.StatusResponse
				err error
			)
			if serverURL != "" {
				st, err = statusViaHTTP(cmd.Context(), serverURL)
			} else {
				st, err = server.NewStatus(a.cfg)
			}
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			return cli.WriteStatus(cmd.OutOrStdout(), st, a.format)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "ask a running kiku server instead of reading the store")
	return cmd
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, defaultFileConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// defaultFileConfig is the config written by init. The store lives next to the file.
func defaultFileConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Store.Path = "./.kiku/store"
	return cfg
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kiku version %s\n", version)
		},
	}
}

func writeJSONTo(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
