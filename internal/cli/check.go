package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"veristream/internal/event"
	"veristream/internal/session"
	"veristream/internal/transcript"
)

var (
	checkFromFile bool
	checkJSON     string
	checkTimeout  time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <content-id>",
	Short: "Verify one piece of content and print the verdicts",
	Long: `Check runs the full verification pipeline once, in the foreground,
and prints each verdict as it is synthesized.

With --file the argument is a local transcript file: a JSON array of
{"text", "start", "duration"} caption spans.

Example:
  veristream check dQw4w9WgXcQ
  veristream check --file transcript.json
  veristream check dQw4w9WgXcQ --json verdicts.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkFromFile, "file", false, "treat the argument as a local transcript file")
	checkCmd.Flags().StringVar(&checkJSON, "json", "", "write verified claims to this JSON path")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Minute, "overall check timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var source transcript.Source
	if checkFromFile {
		source = transcript.FileSource{}
	}

	log := buildLogger()
	mgr, err := buildManager(cfg, source, log)
	if err != nil {
		return err
	}

	snap, err := checkOne(mgr, args[0], checkTimeout, verbose)
	if err != nil {
		return err
	}

	printVerdicts(snap)

	if checkJSON != "" {
		data, err := json.MarshalIndent(snap.Verified, "", "  ")
		if err != nil {
			return fmt.Errorf("encode verdicts: %w", err)
		}
		if err := os.WriteFile(checkJSON, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", checkJSON, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d verdicts to %s\n", len(snap.Verified), checkJSON)
	}

	if snap.State == session.StateError {
		return fmt.Errorf("check failed: %s", snap.Error)
	}
	return nil
}

// checkOne runs one session to completion, echoing progress when verbose.
func checkOne(mgr *session.Manager, contentID string, timeout time.Duration, echo bool) (session.Snapshot, error) {
	snap, err := mgr.Start(contentID)
	if err != nil {
		return session.Snapshot{}, err
	}

	ch, cancel, err := mgr.Subscribe(snap.ID, 0)
	if err != nil {
		return session.Snapshot{}, err
	}
	defer cancel()

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return mgr.Get(snap.ID)
			}
			if echo {
				echoEvent(ev)
			}
		case <-deadline:
			_ = mgr.Cancel(snap.ID)
			return session.Snapshot{}, fmt.Errorf("check timed out after %v", timeout)
		}
	}
}

func echoEvent(ev event.Event) {
	switch p := ev.Payload.(type) {
	case event.StatusPayload:
		fmt.Fprintf(os.Stderr, "[%s]\n", p.State)
	case event.ExtractionProgressPayload:
		fmt.Fprintf(os.Stderr, "  chunk %d/%d: %d claims\n", p.ChunkIndex+1, p.TotalChunks, p.ClaimsFound)
	case event.ClaimExtractedPayload:
		marker := "?"
		if p.Unverified {
			marker = "-"
		}
		fmt.Fprintf(os.Stderr, "  %s %s\n", marker, p.Claim.Text)
	case event.ClaimVerifiedPayload:
		fmt.Fprintf(os.Stderr, "  %s (%.1f) %s\n", p.Verdict.Label, p.Verdict.Confidence, p.Claim.Text)
	case event.ErrorPayload:
		fmt.Fprintf(os.Stderr, "  error: %s\n", p.Message)
	}
}

func printVerdicts(snap session.Snapshot) {
	fmt.Printf("Session %s: %s\n", snap.ID, snap.State)
	fmt.Printf("Claims extracted: %d, verified: %d\n\n", snap.ClaimsExtracted, snap.ClaimsVerified)

	for _, vc := range snap.Verified {
		fmt.Printf("%-14s %.1f/10  %s\n", vc.Verdict.Label, vc.Verdict.Confidence, vc.Claim.Text)
		if vc.Verdict.Explanation != "" {
			fmt.Printf("               %s\n", vc.Verdict.Explanation)
		}
		for _, src := range vc.Verdict.Sources {
			fmt.Printf("               [%s] %s\n", src.Tier, src.URL)
		}
		fmt.Println()
	}
}
