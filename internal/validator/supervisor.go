package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fontkeep/fontkeep/internal/font"
)

// WorkerBinName is the validator executable the supervisor launches.
const WorkerBinName = "fontkeep-validator"

// EnvWorkerBin overrides worker binary discovery.
const EnvWorkerBin = "FONTKEEP_VALIDATOR_BIN"

// Result pairs a requested path with its validation outcome. Err is
// nil exactly when the path validated cleanly.
type Result struct {
	Path string
	Info *font.FaceInfo
	Err  *WireError
}

// OK reports whether the path passed validation.
func (r Result) OK() bool { return r.Err == nil }

// Supervisor runs font validation in a separate worker process so a
// malformed file can never take down the manager. One worker handles
// one batch and exits.
type Supervisor struct {
	// BinPath pins the worker binary. When empty, discovery falls back
	// to the environment, the supervisor's own directory, then PATH.
	BinPath string

	Logger *log.Logger
}

// NewSupervisor creates a supervisor with default binary discovery.
func NewSupervisor() *Supervisor {
	return &Supervisor{
		Logger: log.New(os.Stderr, "[validator] ", log.LstdFlags),
	}
}

// Validate runs the worker over paths and returns one Result per path,
// in request order. Worker-level failures (timeout, crash, garbled
// output) fail the whole batch: every Result carries the same error
// kind. Only the returned error indicates the supervisor itself could
// not even attempt the batch.
func (s *Supervisor) Validate(ctx context.Context, paths []string, cfg Config) ([]Result, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	bin, err := s.workerBinary()
	if err != nil {
		return nil, err
	}

	req := Request{
		Paths:            paths,
		MaxFileSizeBytes: cfg.MaxFileSizeBytes,
		TimeoutMS:        cfg.TimeoutMS,
		AllowCollections: cfg.AllowCollections,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode validation request: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(DefaultTimeoutMS) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, bin)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			s.logf("WARN: worker exceeded %v deadline for %d file(s)", timeout, len(paths))
			return batchFailure(paths, KindTimeout,
				fmt.Sprintf("validation did not finish within %dms", cfg.TimeoutMS)), nil
		}
		s.logf("WARN: worker exited abnormally: %v (stderr: %s)", err, Sanitize(stderr.String()))
		return batchFailure(paths, KindProcessCrashed, "validator process exited abnormally"), nil
	}

	var outcomes []Outcome
	if err := json.Unmarshal(stdout.Bytes(), &outcomes); err != nil {
		s.logf("WARN: worker produced unparsable output: %v", err)
		return batchFailure(paths, KindProcessCrashed, "validator produced unreadable output"), nil
	}
	if len(outcomes) != len(paths) {
		s.logf("WARN: worker answered %d outcomes for %d paths", len(outcomes), len(paths))
		return batchFailure(paths, KindProcessCrashed, "validator answered for the wrong number of files"), nil
	}

	results := make([]Result, len(paths))
	for i, out := range outcomes {
		results[i] = Result{Path: paths[i]}
		if out.OK && out.Info != nil {
			info := *out.Info
			info.Path = paths[i]
			results[i].Info = &info
			continue
		}
		werr := out.Error
		if werr == nil {
			werr = &WireError{Kind: KindProcessCrashed, Message: "validator returned an empty outcome"}
		}
		results[i].Err = werr
	}
	return results, nil
}

// workerBinary resolves the validator executable. Resolution order:
// explicit BinPath, the environment override, a sibling of the current
// executable, then PATH.
func (s *Supervisor) workerBinary() (string, error) {
	if s.BinPath != "" {
		return s.BinPath, nil
	}
	if env := os.Getenv(EnvWorkerBin); env != "" {
		return env, nil
	}

	name := WorkerBinName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), name)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return sibling, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("validator binary %q not found: %w", name, err)
	}
	return path, nil
}

func (s *Supervisor) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// batchFailure marks every path with the same error kind. Used when
// the failure belongs to the worker process, not to any single file.
func batchFailure(paths []string, kind ErrorKind, message string) []Result {
	results := make([]Result, len(paths))
	werr := &WireError{Kind: kind, Message: Sanitize(message)}
	for i, p := range paths {
		results[i] = Result{Path: p, Err: werr}
	}
	return results
}
