package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"areastate.ai/internal/areastate"
	persistlog "areastate.ai/internal/persistence/log"
	"areastate.ai/internal/persistence/snapshot"
)

var (
	replayJournalDir string
	replayInstance   uint32
	replayJSON       bool
	replaySnapshot   string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Summarize a discovery journal",
	Long: `Decode every events-*.jsonl.zst file in a journal directory and print what was
discovered in each instance.

Examples:
  areastate replay --journal ./data/journal
  areastate replay --journal ./data/journal --instance 7 --json
  areastate replay --snapshot ./data/snapshots/registry-20260502T083000.snap.zst`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayJournalDir, "journal", "./data/journal", "journal directory")
	replayCmd.Flags().Uint32Var(&replayInstance, "instance", 0, "only this instance (0 = all)")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "output as JSON")
	replayCmd.Flags().StringVar(&replaySnapshot, "snapshot", "", "print a registry snapshot instead of the journal")
}

type instanceSummary struct {
	Instance   areastate.InstanceKey `json:"instance"`
	AreaID     string                `json:"area_id"`
	First      time.Time             `json:"first"`
	Last       time.Time             `json:"last"`
	Locations  map[string]int        `json:"locations"`
	Containers int                   `json:"containers"`
	Strongbox  int                   `json:"strongboxes"`
	Identified int                   `json:"identified"`
}

type replaySummary struct {
	Files     int                `json:"files"`
	Events    int                `json:"events"`
	Instances []*instanceSummary `json:"instances"`
}

func runReplay(cmd *cobra.Command, _ []string) error {
	if replaySnapshot != "" {
		return printSnapshot(cmd.OutOrStdout(), replaySnapshot, replayJSON)
	}
	list := persistlog.ListEventFiles
	if replayInstance != 0 {
		list = func(dir string) ([]string, error) {
			return persistlog.ListInstanceFiles(dir, areastate.InstanceKey(replayInstance))
		}
	}
	files, err := list(replayJournalDir)
	if err != nil {
		return fmt.Errorf("list journal: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no events-*.jsonl.zst files in %s", replayJournalDir)
	}
	sum, err := summarize(files, areastate.InstanceKey(replayInstance))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if replayJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	printSummary(out, sum)
	return nil
}

func summarize(files []string, only areastate.InstanceKey) (replaySummary, error) {
	sum := replaySummary{Files: len(files)}
	byKey := map[areastate.InstanceKey]*instanceSummary{}
	for _, path := range files {
		err := persistlog.ReadEvents(path, func(ev areastate.Event) error {
			if only != 0 && ev.Instance != only {
				return nil
			}
			sum.Events++
			s, ok := byKey[ev.Instance]
			if !ok {
				s = &instanceSummary{Instance: ev.Instance, AreaID: ev.AreaID, First: ev.At, Locations: map[string]int{}}
				byKey[ev.Instance] = s
			}
			if ev.At.Before(s.First) {
				s.First = ev.At
			}
			if ev.At.After(s.Last) {
				s.Last = ev.At
			}
			switch {
			case ev.Location != nil:
				s.Locations[ev.Location.Name]++
			case ev.Container != nil:
				s.Containers++
				if ev.Container.IsStrongbox {
					s.Strongbox++
				}
				if ev.Container.IsIdentified {
					s.Identified++
				}
			}
			return nil
		})
		if err != nil {
			return sum, fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, s := range byKey {
		sum.Instances = append(sum.Instances, s)
	}
	sort.Slice(sum.Instances, func(i, j int) bool {
		a, b := sum.Instances[i], sum.Instances[j]
		if !a.First.Equal(b.First) {
			return a.First.Before(b.First)
		}
		return a.Instance < b.Instance
	})
	return sum, nil
}

func printSummary(w io.Writer, sum replaySummary) {
	fmt.Fprintf(w, "journal files=%d events=%d instances=%d\n", sum.Files, sum.Events, len(sum.Instances))
	for _, s := range sum.Instances {
		fmt.Fprintf(w, "%s %-20s %s..%s containers=%d strongboxes=%d identified=%d\n",
			s.Instance, s.AreaID, s.First.Format(time.TimeOnly), s.Last.Format(time.TimeOnly),
			s.Containers, s.Strongbox, s.Identified)
		names := make([]string, 0, len(s.Locations))
		for name := range s.Locations {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s x%d", name, s.Locations[name]))
		}
		if len(parts) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(parts, ", "))
		}
	}
}

func printSnapshot(w io.Writer, path string, asJSON bool) error {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	fmt.Fprintf(w, "snapshot v%d taken=%s tick=%d current=0x%X instances=%d\n",
		snap.Header.Version, snap.Header.TakenAt.Format(time.RFC3339), snap.Header.Tick, snap.Header.Current, len(snap.Instances))
	for _, inst := range snap.Instances {
		fmt.Fprintf(w, "%s %-20s locations=%d containers=%d items=%d stash=%v waypoint=%v time=%s\n",
			inst.Instance, inst.AreaID, len(inst.Locations), len(inst.Containers), len(inst.Items),
			inst.HasStashLocation, inst.HasWaypointLocation, inst.TimeInInstance.Round(time.Second))
	}
	return nil
}
