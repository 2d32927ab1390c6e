package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"veristream/internal/session"
	"veristream/internal/worker"
)

var (
	batchWorkers int
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <ids-file>",
	Short: "Verify many content ids from a file",
	Long: `Batch reads content ids from a file (one per line, # comments allowed)
and runs each through the verification pipeline with a bounded worker
pool, printing a one-line summary per id.

Example:
  veristream batch ids.txt
  veristream batch ids.txt --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 2, "concurrent checks")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 5*time.Minute, "per-id timeout")
}

// checkJob verifies one content id through the shared manager.
type checkJob struct {
	mgr       *session.Manager
	contentID string
	timeout   time.Duration
}

// checkResult is the outcome of one batch item.
type checkResult struct {
	contentID string
	snap      session.Snapshot
	err       error
}

func (r checkResult) GetError() error { return r.err }

func (j checkJob) Execute(ctx context.Context) worker.Result {
	snap, err := checkOne(j.mgr, j.contentID, j.timeout, false)
	if err == nil && snap.State == session.StateError {
		err = fmt.Errorf("%s", snap.Error)
	}
	return checkResult{contentID: j.contentID, snap: snap, err: err}
}

func runBatch(cmd *cobra.Command, args []string) error {
	ids, err := readIDs(args[0])
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no content ids in %s", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := buildLogger()
	mgr, err := buildManager(cfg, nil, log)
	if err != nil {
		return err
	}

	pool := worker.NewPool(batchWorkers)
	pool.Start()
	for _, id := range ids {
		pool.Submit(checkJob{mgr: mgr, contentID: id, timeout: batchTimeout})
	}

	var failed int
	for _, res := range pool.Wait() {
		r := res.(checkResult)
		if r.err != nil {
			failed++
			fmt.Printf("FAIL  %-20s %v\n", r.contentID, r.err)
			continue
		}
		fmt.Printf("OK    %-20s %d claims, %d verified\n", r.contentID, r.snap.ClaimsExtracted, r.snap.ClaimsVerified)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(ids))
	}
	return nil
}

func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ids file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}
