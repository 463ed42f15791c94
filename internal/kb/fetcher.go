package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/raphaelgruber/markerdocs/internal/llm"
	"github.com/raphaelgruber/markerdocs/internal/metrics"
	"github.com/raphaelgruber/markerdocs/internal/models"
)

// Generator produces a document as a lazy, finite, ordered stream of
// text fragments. onToken is called once per fragment in arrival order;
// returning an error aborts the stream. *llm.Model satisfies this.
type Generator interface {
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string, onToken func(token string) error) error
}

// systemPrompt is the fixed instruction sent with every request.
const systemPrompt = "你是 Kimi，由 Moonshot AI 提供的人工智能助手，你更擅长中文和英文的对话。" +
	"你会为用户提供安全，有帮助，准确的回答。同时，你会拒绝一切涉及恐怖主义，种族歧视，黄色暴力等问题的回答。" +
	"Moonshot AI 为专有名词，不可翻译成其他语言。"

// BuildPrompt returns the per-marker user prompt: explain the meaning
// of the indicator, common abnormal patterns, probable causes, and
// recommended follow-up, formatted as markdown.
func BuildPrompt(m models.Marker) string {
	return fmt.Sprintf(
		"介绍一下 '%s'（%s）这个体检指标的涵义，以及常见的异常，异常对应的可能原因，"+
			"异常对应的建议后续处理（如调整生活方式，进一步详细检查等）。使用 markdown 输出",
		m.NameEN, m.NameCN,
	)
}

// Fetcher generates one document per marker and writes it to the path
// from BuildPath. It holds no mutable state; one Fetcher is shared by
// all workers.
type Fetcher struct {
	gen        Generator
	outputRoot string
	collector  *metrics.Collector
	logger     *slog.Logger

	// OnFragment, when set, receives every fragment after it has been
	// written. Used by the single-marker query command to echo the
	// stream to stdout. Must not be set for concurrent batch runs.
	OnFragment func(token string)
}

// NewFetcher creates a fetcher writing under outputRoot. collector and
// logger may be nil.
func NewFetcher(gen Generator, outputRoot string, collector *metrics.Collector, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		gen:        gen,
		outputRoot: outputRoot,
		collector:  collector,
		logger:     logger,
	}
}

// Fetch requests the document for one marker and streams it to disk.
// Fragments are written as they arrive, so a failure mid-stream leaves
// a partial file behind rather than nothing; see Partition for how that
// interacts with resume.
//
// Fetch never returns an error: every failure is folded into the
// FetchResult so one marker can never abort its siblings. The one
// signal that escapes is fatality. A Fatal result tells the scheduler
// the API itself is broken (bad credentials, exhausted billing) and
// further requests are pointless; transient errors, rate limiting
// included, are never fatal.
func (f *Fetcher) Fetch(ctx context.Context, m models.Marker) models.FetchResult {
	path := BuildPath(m.Index, m.NameEN, m.NameCN, m.Category, f.outputRoot)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return f.failure(m, "", 0, fmt.Errorf("create output dir: %w", err))
	}

	file, err := os.Create(path)
	if err != nil {
		return f.failure(m, "", 0, fmt.Errorf("create output file: %w", err))
	}

	written := 0
	start := time.Now()
	streamErr := f.gen.GenerateStream(ctx, systemPrompt, BuildPrompt(m), func(token string) error {
		n, werr := file.WriteString(token)
		written += n
		if werr != nil {
			return fmt.Errorf("write fragment: %w", werr)
		}
		if f.OnFragment != nil {
			f.OnFragment(token)
		}
		return nil
	})
	duration := time.Since(start)

	if f.collector != nil {
		f.collector.RecordTransfer(metrics.OpGenerate, duration, int64(written))
	}

	closeErr := file.Close()

	if streamErr != nil {
		return f.failure(m, path, written, streamErr)
	}
	if closeErr != nil {
		return f.failure(m, path, written, fmt.Errorf("close output file: %w", closeErr))
	}

	f.logger.Debug("document written", "marker", m.NameEN, "index", m.Index, "path", path,
		"bytes", written, "duration_ms", duration.Milliseconds())

	return models.FetchResult{
		Marker:  m,
		Success: true,
		Path:    path,
		Bytes:   written,
	}
}

func (f *Fetcher) failure(m models.Marker, path string, written int, err error) models.FetchResult {
	f.logger.Warn("fetch failed", "marker", m.NameEN, "index", m.Index, "bytes_written", written, "error", err)
	return models.FetchResult{
		Marker: m,
		Path:   path,
		Bytes:  written,
		Err:    err.Error(),
		Fatal:  errors.Is(err, llm.ErrFatalAPI),
	}
}
