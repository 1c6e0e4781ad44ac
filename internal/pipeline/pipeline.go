// Package pipeline drives a load run: it reads the code list, resolves and
// fetches every code from the registry, and hands each detail record to the
// statement generator.
//
// Codes are processed one at a time, in input order. A failure at any stage
// of a code skips that code only. A token failure, or cancellation of the
// run context, aborts the run; statements already written stay in the
// output file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/icdload/internal/codes"
	"github.com/JonMunkholm/icdload/internal/logging"
	"github.com/JonMunkholm/icdload/internal/registry"
)

// Lookup resolves codes against the registry.
// Satisfied by *registry.Client.
type Lookup interface {
	StemByCode(ctx context.Context, code string) (*registry.CodeInfo, error)
	EntityByReference(ctx context.Context, ref string) (*registry.Entity, error)
}

// tokenExpirer is implemented by lookups that know their token lifetime.
type tokenExpirer interface {
	TokenExpiry() (time.Time, bool)
}

// Output turns detail records into statements and stores them.
// Satisfied by *core.Generator.
type Output interface {
	Clear(ctx context.Context)
	Generate(ctx context.Context, detail *registry.Entity, versionID int) (string, error)
	Write(ctx context.Context, statement string)
	Path() string
}

// CodeReader loads the code list from path.
type CodeReader func(ctx context.Context, path string) []string

// Runner executes load runs.
type Runner struct {
	lookup     Lookup
	out        Output
	versionID  int
	readCodes  CodeReader
	onProgress ProgressCallback
}

// Option configures a Runner.
type Option func(*Runner)

// WithProgress registers a callback invoked on every phase change.
func WithProgress(cb ProgressCallback) Option {
	return func(r *Runner) { r.onProgress = cb }
}

// WithCodeReader replaces the JSON code file reader.
func WithCodeReader(fn CodeReader) Option {
	return func(r *Runner) {
		if fn != nil {
			r.readCodes = fn
		}
	}
}

// New creates a Runner producing rows for versionID.
func New(lookup Lookup, out Output, versionID int, opts ...Option) *Runner {
	r := &Runner{
		lookup:    lookup,
		out:       out,
		versionID: versionID,
		readCodes: codes.Read,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run holds the state of one Run call.
type run struct {
	*Runner
	result *Result
	start  time.Time
}

// Run processes every code listed in inputPath. The returned error is
// non-nil only when the run aborted; it wraps registry.ErrTokenAcquisition
// or the context error. The Result is always returned.
func (r *Runner) Run(ctx context.Context, inputPath string) (*Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	st := &run{
		Runner: r,
		result: &Result{
			RunID:      runID,
			InputFile:  inputPath,
			OutputFile: r.out.Path(),
			VersionID:  r.versionID,
			Skipped:    []SkippedCode{},
		},
		start: time.Now(),
	}

	logger.Info("load run started",
		"input", inputPath,
		"output", r.out.Path(),
		"version_id", r.versionID,
	)
	st.progress(PhaseIdle, "", 0)

	r.out.Clear(ctx)

	st.progress(PhaseReading, "", 0)
	list := r.readCodes(ctx, inputPath)
	st.result.TotalCodes = len(list)

	if len(list) == 0 {
		logger.Warn("no codes to process", "input", inputPath)
		return st.finish(ctx, nil)
	}
	logger.Info("codes loaded", "count", len(list))

	for i, code := range list {
		if err := ctx.Err(); err != nil {
			return st.finish(ctx, fmt.Errorf("run cancelled: %w", err))
		}

		if err := st.process(ctx, i+1, code); err != nil {
			return st.finish(ctx, err)
		}
	}

	return st.finish(ctx, nil)
}

// process handles one code. It returns an error only when the run must abort.
func (st *run) process(ctx context.Context, index int, raw string) error {
	code := strings.TrimSpace(raw)
	logger := logging.WithFields(ctx, "code", code, "index", index)

	if code == "" {
		st.skip(ctx, SkippedCode{Code: raw, Index: index, Stage: PhaseReading, Reason: "blank code"})
		return nil
	}

	logger.Info("processing code")

	st.progress(PhaseResolving, code, index)
	info, err := st.lookup.StemByCode(ctx, code)
	if err != nil {
		return st.lookupFailed(ctx, code, index, PhaseResolving, err)
	}
	if info == nil || strings.TrimSpace(info.StemID) == "" {
		st.skip(ctx, SkippedCode{Code: code, Index: index, Stage: PhaseResolving, Reason: "no stem id in codeinfo response"})
		return nil
	}

	st.progress(PhaseFetching, code, index)
	detail, err := st.lookup.EntityByReference(ctx, info.StemID)
	if err != nil {
		return st.lookupFailed(ctx, code, index, PhaseFetching, err)
	}

	st.progress(PhaseGenerating, code, index)
	stmt, err := st.out.Generate(ctx, detail, st.versionID)
	if err != nil {
		st.skip(ctx, SkippedCode{Code: code, Index: index, Stage: PhaseGenerating, Reason: err.Error()})
		return nil
	}

	st.progress(PhaseWriting, code, index)
	st.out.Write(ctx, stmt)
	st.result.Written++

	logger.Info("statement written", "stem_id", info.StemID)
	return nil
}

// lookupFailed classifies a registry error: token failures and
// cancellation abort the run, anything else skips the code.
func (st *run) lookupFailed(ctx context.Context, code string, index int, stage Phase, err error) error {
	if errors.Is(err, registry.ErrTokenAcquisition) {
		return fmt.Errorf("code %q: %w", code, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("run cancelled: %w", ctxErr)
	}
	st.skip(ctx, SkippedCode{Code: code, Index: index, Stage: stage, Reason: err.Error()})
	return nil
}

func (st *run) skip(ctx context.Context, s SkippedCode) {
	st.result.Skipped = append(st.result.Skipped, s)
	logging.FromContext(ctx).Warn("code skipped",
		"code", s.Code,
		"index", s.Index,
		"stage", string(s.Stage),
		"reason", s.Reason,
	)
}

func (st *run) progress(phase Phase, code string, index int) {
	if st.onProgress == nil {
		return
	}
	st.onProgress(Progress{
		RunID:   st.result.RunID,
		Phase:   phase,
		Code:    code,
		Index:   index,
		Total:   st.result.TotalCodes,
		Written: st.result.Written,
		Skipped: len(st.result.Skipped),
	})
}

// finish records the final phase and logs the run summary.
func (st *run) finish(ctx context.Context, err error) (*Result, error) {
	logger := logging.FromContext(ctx)
	res := st.result
	res.Duration = time.Since(st.start)

	if err != nil {
		res.Phase = PhaseAborted
		res.Error = err.Error()
		logger.Error("load run aborted", "error", err)
	} else {
		res.Phase = PhaseDone
	}

	if te, ok := st.lookup.(tokenExpirer); ok {
		if exp, ok := te.TokenExpiry(); ok {
			res.TokenExpiresAt = exp
			if exp.Before(time.Now()) {
				logger.Warn("access token expired before the run finished", "expires_at", exp)
			}
		}
	}

	st.progress(res.Phase, "", 0)
	logger.Info("load run finished",
		"phase", string(res.Phase),
		"total", res.TotalCodes,
		"written", res.Written,
		"skipped", len(res.Skipped),
		"duration_ms", res.Duration.Milliseconds(),
		"output", res.OutputFile,
	)
	return res, err
}
