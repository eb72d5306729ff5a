package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/logger"
	"github.com/timmy/repobrief/internal/prompts"
)

const (
	defaultMaxCandidates     = 25
	defaultCompressOverChars = 12000
	defaultCompressRatio     = 0.6
)

// RepoSource lists and downloads the eligible files of a repository.
// source.Fetcher is the production implementation.
type RepoSource interface {
	ListFiles(ctx context.Context, repo domain.RepoRef) ([]domain.TreeEntry, error)
	FetchContents(ctx context.Context, entries []domain.TreeEntry) ([]domain.CandidateFile, error)
	Fetchable(e domain.TreeEntry) bool
}

// PipelineConfig holds the tuning knobs of a single run.
type PipelineConfig struct {
	Selection         domain.SelectionConfig
	Budget            domain.ContextBudget
	MaxCandidates     int
	CompressOverChars int
	CompressRatio     float64
}

// DefaultPipelineConfig returns the standard selection and budget settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Selection:         domain.DefaultSelectionConfig(),
		Budget:            domain.DefaultContextBudget(),
		MaxCandidates:     defaultMaxCandidates,
		CompressOverChars: defaultCompressOverChars,
		CompressRatio:     defaultCompressRatio,
	}
}

// Result is the output of a successful run.
type Result struct {
	Content       string
	Context       string
	SelectedPaths []string
	FileCount     int
}

// Pipeline turns a repository reference into a generated summary.
type Pipeline struct {
	source    RepoSource
	embedder  *FileEmbedder
	generator Generator
	cfg       PipelineConfig
}

// NewPipeline creates a Pipeline. embedder may be nil, in which case selection
// falls back to path priority.
func NewPipeline(src RepoSource, embedder *FileEmbedder, generator Generator, cfg PipelineConfig) *Pipeline {
	cfg.Selection = cfg.Selection.Normalize()
	if cfg.Budget.MaxCharsPerFile <= 0 || cfg.Budget.MaxTotalChars <= 0 {
		cfg.Budget = domain.DefaultContextBudget()
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = defaultMaxCandidates
	}
	if cfg.CompressOverChars <= 0 {
		cfg.CompressOverChars = defaultCompressOverChars
	}
	if cfg.CompressRatio <= 0 || cfg.CompressRatio > 1 {
		cfg.CompressRatio = defaultCompressRatio
	}
	return &Pipeline{source: src, embedder: embedder, generator: generator, cfg: cfg}
}

// Run executes every stage in order and calls report at each checkpoint.
// Parameters:
//   - ctx: cancelling ctx stops the run before the next stage with domain.ErrCancelled.
//   - repo: repository to summarize.
//   - report: checkpoint callback; may be nil. A non-nil error from it aborts the run.
// Returns:
//   - *Result: generated summary and the files that fed it.
//   - error: domain.ErrSourceUnavailable, domain.ErrCancelled, or a generation failure.
func (p *Pipeline) Run(ctx context.Context, repo domain.RepoRef, report ProgressFunc) (*Result, error) {
	ctx = logger.SetRepo(logger.SetComponent(ctx, "pipeline"), repo.FullName())
	start := time.Now()

	reach := func(stage Stage) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}
		if report == nil {
			return nil
		}
		return report(stage)
	}

	entries, err := p.source.ListFiles(ctx, repo)
	if err != nil {
		return nil, err
	}
	if err := reach(StageTreeListed); err != nil {
		return nil, err
	}

	files, err := p.source.FetchContents(ctx, p.chooseCandidates(entries))
	if err != nil {
		return nil, err
	}
	if err := reach(StageContentsFetched); err != nil {
		return nil, err
	}

	files = p.compress(ctx, files)

	selected, err := p.selectFiles(ctx, files, reach)
	if err != nil {
		return nil, err
	}
	if err := reach(StageSelected); err != nil {
		return nil, err
	}

	contextText := BuildContext(selected, p.cfg.Budget)
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	fileList := BuildFileListSummary(paths)
	if err := reach(StageContextBuilt); err != nil {
		return nil, err
	}

	prompt := prompts.BuildReadmePrompt(repo.Name, fileList, contextText)
	content, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("generate summary: %w", err)
	}
	if err := reach(StageGenerated); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{"selected": len(selected)}).
		WithCount(len(entries)).
		WithDuration(start).
		Info(ctx, "Pipeline finished")

	return &Result{
		Content:       content,
		Context:       contextText,
		SelectedPaths: domain.Paths(selected),
		FileCount:     len(entries),
	}, nil
}

// chooseCandidates keeps the highest-priority fetchable entries, stable on listing order.
func (p *Pipeline) chooseCandidates(entries []domain.TreeEntry) []domain.TreeEntry {
	ordered := make([]domain.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if p.source.Fetchable(e) {
			ordered = append(ordered, e)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return FilePriority(ordered[i].Path) > FilePriority(ordered[j].Path)
	})
	if len(ordered) > p.cfg.MaxCandidates {
		ordered = ordered[:p.cfg.MaxCandidates]
	}
	return ordered
}

func (p *Pipeline) compress(ctx context.Context, files []domain.CandidateFile) []domain.CandidateFile {
	out := make([]domain.CandidateFile, len(files))
	for i, f := range files {
		out[i] = f
		if f.Len() > p.cfg.CompressOverChars {
			out[i].Content = CompressToFit(f.Content, p.cfg.CompressOverChars, p.cfg.CompressRatio)
			logger.CtxDebug(ctx, "Compressed %s from %d to %d characters", f.Path, f.Len(), out[i].Len())
		}
	}
	return out
}

// selectFiles picks the files that feed the context, reporting StageEmbedded on the way.
func (p *Pipeline) selectFiles(ctx context.Context, files []domain.CandidateFile, reach func(Stage) error) ([]domain.CandidateFile, error) {
	if p.embedder == nil {
		if err := reach(StageEmbedded); err != nil {
			return nil, err
		}
		return p.prioritySelection(files), nil
	}

	embedded, err := p.embedder.EmbedFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	if err := reach(StageEmbedded); err != nil {
		return nil, err
	}

	query, err := p.embedder.EmbedQuery(ctx, ReadmeQuery)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
		}
		logger.CtxWarn(ctx, "Query embedding failed, selecting by priority: %v", err)
		return p.prioritySelection(files), nil
	}

	picked := SelectMMR(embedded, query, p.cfg.Selection)
	out := make([]domain.CandidateFile, len(picked))
	for i, e := range picked {
		out[i] = e.CandidateFile
	}
	return out, nil
}

func (p *Pipeline) prioritySelection(files []domain.CandidateFile) []domain.CandidateFile {
	ordered := SortByPriority(files)
	if len(ordered) > p.cfg.Selection.TopK {
		ordered = ordered[:p.cfg.Selection.TopK]
	}
	return ordered
}
