// Command cli runs one batch scoring pass and prints the run summary and
// the highest-risk waves to stdout, without starting the HTTP server.
package main

import (
	"fmt"
	"log"
	"sort"

	"github.com/joho/godotenv"

	"driftwatch/adapters/tabular"
	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
	"driftwatch/internal"
	"driftwatch/internal/config"
	"driftwatch/internal/pipeline"
	"driftwatch/internal/testkit"
)

const topN = 10

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.DefaultLogger

	var frame *survey.Frame
	var groups, features []string
	if cfg.Data.InputPath == "" {
		frame = testkit.SyntheticCohort(testkit.DefaultPersons, testkit.DefaultWaves, cfg.Engine.Seed)
		groups = testkit.SyntheticGroups(frame)
		features = testkit.CohortFeatures
	} else {
		frame, groups, err = tabular.NewReader(cfg.Data).Read()
		if err != nil {
			log.Fatalf("Failed to load %s: %v", cfg.Data.InputPath, err)
		}
		features = cfg.Data.Features
	}

	opts := pipeline.FromConfig(cfg.Engine, features, logger)
	opts.Groups = groups
	result, err := pipeline.Run(frame, opts)
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}

	fmt.Printf("run %s\n", result.RunID)
	fmt.Printf("  snapshot   %s\n", result.Fingerprint)
	fmt.Printf("  rows       %d (%d persons)\n", result.Frame.Len(), len(result.Frame.Persons()))
	fmt.Printf("  model      %s, threshold %.2f, fallback=%v\n",
		result.Trained.Family, result.Trained.Threshold, result.UsedFallback)
	fmt.Printf("  metrics    F2 %.3f  PR-AUC %.3f  ROC-AUC %.3f\n",
		result.Trained.Metrics.F2, result.Trained.Metrics.PRAUC, result.Trained.Metrics.ROCAUC)
	fmt.Printf("  drivers    %v\n", result.TopContributors)

	if result.Fairness != nil {
		fmt.Println("  fairness by group:")
		names := make([]string, 0, len(result.Fairness.ByGroup))
		for g := range result.Fairness.ByGroup {
			names = append(names, g)
		}
		sort.Strings(names)
		for _, g := range names {
			m := result.Fairness.ByGroup[g]
			fmt.Printf("    %-12s F2 %.3f  PR-AUC %.3f  n=%d\n", g, m.F2, m.PRAUC, m.N)
		}
		if result.Fairness.HasDisparity {
			fmt.Printf("    F2 disparity %.3f\n", result.Fairness.Disparity)
		}
	}

	scored := make([]risk.ScoredWave, len(result.Scored))
	copy(scored, result.Scored)
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })

	n := topN
	if n > len(scored) {
		n = len(scored)
	}
	fmt.Printf("\ntop %d waves by risk:\n", n)
	for _, s := range scored[:n] {
		fmt.Printf("  %s wave %d: score %.0f (%s, %s)\n    %s\n    follow-up: %s\n",
			s.Person, s.Wave, s.Score, s.Band, s.Category, s.Explanation, s.FollowUp)
	}
}
