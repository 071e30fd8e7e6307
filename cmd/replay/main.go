// Command replay re-runs recorded model outputs through the response
// pipeline offline: each transcript line is parsed, dice-validated and
// dry-merged, and the per-turn outcome is reported. Useful for judging
// parser and validator behavior against a captured session without
// touching an LLM or Redis.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
	"github.com/jleechanorg/claude-commands-sub003/pkg/response"
	"github.com/jleechanorg/claude-commands-sub003/pkg/state"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	acceptedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	rejectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	repairedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// transcriptRecord is one recorded model turn.
type transcriptRecord struct {
	Text        string            `json:"text"`
	Evidence    *dice.Evidence    `json:"evidence,omitempty"`
	ToolResults []dice.ToolResult `json:"tool_results,omitempty"`
}

func main() {
	var (
		file         = flag.String("file", "", "transcript file, one JSON record per line")
		strategyFlag = flag.String("strategy", string(dice.StrategyCodeExecution), "dice strategy: code_execution or native_two_phase")
		stateFile    = flag.String("state", "", "optional initial campaign state JSON file")
		verbose      = flag.Bool("v", false, "print merged state after each turn")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -file <transcript.jsonl> [-strategy code_execution|native_two_phase] [-state state.json] [-v]\n", os.Args[0])
		os.Exit(1)
	}

	strategy := dice.Strategy(*strategyFlag)
	if strategy != dice.StrategyCodeExecution && strategy != dice.StrategyNativeTwoPhase {
		fmt.Fprintf(os.Stderr, "Invalid strategy: %s\n", *strategyFlag)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	gs := state.NewCanonicalState()
	if *stateFile != "" {
		data, err := os.ReadFile(*stateFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read state file: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, gs); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse state file: %v\n", err)
			os.Exit(1)
		}
		gs.Normalize()
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open transcript: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	parser := response.NewParser(logger)
	validator := dice.NewValidator(strategy, logger)
	merger := state.NewMerger(logger)

	fmt.Println(titleStyle.Render(fmt.Sprintf("Replaying %s (strategy: %s)", *file, strategy)))

	var turn, accepted, rejected, repaired int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		turn++

		var rec transcriptRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// Tolerate raw-text transcripts: the whole line is the output.
			rec = transcriptRecord{Text: string(line)}
		}

		pr, wasRepaired := parser.Parse(rec.Text)
		verdict := validator.Check(pr, rec.Evidence, rec.ToolResults)

		status := acceptedStyle.Render("accepted")
		if !verdict.Accepted {
			status = rejectedStyle.Render(fmt.Sprintf("rejected (%s)", verdict.Reason))
			rejected++
		} else {
			accepted++
		}
		if wasRepaired {
			status += " " + repairedStyle.Render("[repaired]")
			repaired++
		}

		fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("turn %3d:", turn)), status)
		if verdict.Accepted && len(pr.StateUpdates) > 0 {
			gs.ApplyDelta(merger, pr.StateUpdates)
			gs.IncrementTurnCounters()
		}
		if *verbose {
			if out, err := json.MarshalIndent(gs.ToMap(), "  ", "  "); err == nil {
				fmt.Printf("  %s\n", string(out))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read transcript: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(titleStyle.Render("Summary"))
	fmt.Printf("  %s %d\n", labelStyle.Render("turns:"), turn)
	fmt.Printf("  %s %d\n", labelStyle.Render("accepted:"), accepted)
	fmt.Printf("  %s %d\n", labelStyle.Render("rejected:"), rejected)
	fmt.Printf("  %s %d\n", labelStyle.Render("repaired:"), repaired)

	final, err := json.MarshalIndent(gs.ToMap(), "", "  ")
	if err == nil {
		fmt.Println(titleStyle.Render("Final state"))
		fmt.Println(string(final))
	}
}
