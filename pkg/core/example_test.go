package core_test

import (
	"context"
	"fmt"
	"os"

	"github.com/upsift/upsift/pkg/core"
)

// ExampleRun audits the local host with a subset of checks.
func ExampleRun() {
	res, err := core.Run(context.Background(), core.Config{
		Only: []string{"sudo_nopasswd", "docker_group"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
		return
	}
	fmt.Printf("%d checks, %d findings\n", len(res.Checks), len(res.Findings))
	_ = core.MarshalFindings(os.Stdout, res.Findings)
}

// ExampleListChecks prints the catalogue of built-in checks.
func ExampleListChecks() {
	entries, err := core.ListChecks()
	if err != nil {
		return
	}
	for _, e := range entries {
		fmt.Printf("%-18s %s\n", e.ID, e.Severity)
	}
}
