package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chilanguiux/Image-smart-finder/internal/scanner"
)

func init() {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a directory for images",
		Long:  `Run a one-shot recursive scan and print every matching image path.`,
		RunE:  runScan,
	}

	scanCmd.Flags().String("root", "", "Directory to scan (required)")
	scanCmd.Flags().StringSlice("ext", nil, "Accepted extensions (default: built-in image formats)")
	scanCmd.Flags().Bool("json", false, "Print results as JSON")
	_ = scanCmd.MarkFlagRequired("root")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString("root")
	extensions, _ := cmd.Flags().GetStringSlice("ext")
	asJSON, _ := cmd.Flags().GetBool("json")

	exts := scanner.DefaultExtensions()
	if len(extensions) > 0 {
		exts = scanner.NewExtensionSet(extensions...)
	}

	result, err := scanner.New().Scan(cmd.Context(), root, exts)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"root":    root,
			"count":   len(result.Paths),
			"skipped": result.Skipped,
			"paths":   result.Paths,
		})
	}

	for _, p := range result.Paths {
		fmt.Println(p)
	}
	fmt.Fprintf(os.Stderr, "%d images found, %d entries skipped\n", len(result.Paths), result.Skipped)
	return nil
}
