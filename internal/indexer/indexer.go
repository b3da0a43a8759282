// Package indexer walks source paths into records and builds the persisted store from them.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/pkg/utils"
)

// Extractor turns one file into records.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]models.Record, error)
}

// DefaultIgnorePatterns are always skipped during a walk.
var DefaultIgnorePatterns = []string{".git/", ".DS_Store"}

// Indexer ingests files and directories and builds stores from them.
type Indexer struct {
	extractor Extractor
	embedder  embedding.Embedder
	storeDir  string
	workers   int
	ignore    *gitignore.GitIgnore
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithWorkers sets how many files are extracted in parallel during a walk.
func WithWorkers(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// WithIgnore adds gitignore-style patterns, matched against paths relative to the walked root.
func WithIgnore(patterns []string) IndexerOption {
	return func(idx *Indexer) {
		idx.ignore = gitignore.CompileIgnoreLines(append(append([]string{}, DefaultIgnorePatterns...), patterns...)...)
	}
}

func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = utils.OrNop(l) }
}

// NewIndexer creates an indexer. storeDir is where Build saves; it is never walked.
func NewIndexer(ext Extractor, embedder embedding.Embedder, storeDir string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		extractor: ext,
		embedder:  embedder,
		storeDir:  storeDir,
		workers:   1,
		ignore:    gitignore.CompileIgnoreLines(DefaultIgnorePatterns...),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// FileFailure records a file skipped during a directory walk.
type FileFailure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (f FileFailure) Error() string { return f.Path + ": " + f.Err.Error() }

// IngestResult is the outcome of ingesting one or more paths.
type IngestResult struct {
	Records  []models.Record `json:"-"`
	Files    int             `json:"files"`
	Failures []FileFailure   `json:"failures,omitempty"`
}

// Ingest extracts records from path. A single file is extracted directly and its error,
// if any, is returned. A directory is walked recursively in lexical order; files that fail
// are logged and listed in Failures while the rest are kept in traversal order.
func (idx *Indexer) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		recs, err := idx.extractor.Extract(ctx, path)
		if err != nil {
			return nil, err
		}
		return &IngestResult{Records: recs, Files: 1}, nil
	}

	files, err := idx.collect(path)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		recs []models.Record
		err  error
	}
	results := make([]outcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := idx.extractor.Extract(gctx, f)
			results[i] = outcome{recs: recs, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &IngestResult{Files: len(files)}
	for i, o := range results {
		if o.err != nil {
			idx.logger.Warn("skipping file", zap.String("path", files[i]), zap.Error(o.err))
			res.Failures = append(res.Failures, FileFailure{Path: files[i], Err: o.err})
			continue
		}
		res.Records = append(res.Records, o.recs...)
	}
	idx.logger.Info("ingested directory",
		zap.String("path", path),
		zap.Int("files", len(files)),
		zap.Int("failures", len(res.Failures)),
		zap.Int("records", len(res.Records)))
	return res, nil
}

// collect returns the regular files under root in lexical walk order, minus ignored
// paths, the store directory, and transcripts that sit next to their media file.
func (idx *Indexer) collect(root string) ([]string, error) {
	storeAbs, _ := filepath.Abs(idx.storeDir)
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			idx.logger.Warn("cannot access path", zap.String("path", p), zap.Error(err))
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if abs, _ := filepath.Abs(p); idx.storeDir != "" && abs == storeAbs {
				return filepath.SkipDir
			}
			if idx.ignore.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if idx.ignore.MatchesPath(rel) {
			return nil
		}
		if media, ok := extract.SidecarMediaPath(p); ok {
			if _, err := os.Stat(media); err == nil {
				return nil
			}
		}
		// Follow symlinks but only keep regular files.
		if fi, err := os.Stat(p); err != nil || !fi.Mode().IsRegular() {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// BuildResult describes a completed build.
type BuildResult struct {
	IngestResult
	Store *storage.Store `json:"-"`
	Dir   string         `json:"dir"`
}

// Build ingests every path, embeds the records into a fresh store and saves it to the
// store directory, replacing any previous snapshot. Nothing is saved if any step fails.
func (idx *Indexer) Build(ctx context.Context, paths ...string) (*BuildResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths to index")
	}
	out := &BuildResult{Dir: idx.storeDir}
	for _, p := range paths {
		res, err := idx.Ingest(ctx, p)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, res.Records...)
		out.Files += res.Files
		out.Failures = append(out.Failures, res.Failures...)
	}

	store := storage.NewStore(idx.embedder, storage.WithLogger(idx.logger))
	if err := store.Add(ctx, out.Records); err != nil {
		return nil, err
	}
	if err := store.Save(idx.storeDir); err != nil {
		return nil, err
	}
	out.Store = store
	idx.logger.Info("index built",
		zap.String("paths", strings.Join(paths, ",")),
		zap.Int("records", store.Len()),
		zap.String("dir", idx.storeDir))
	return out, nil
}
