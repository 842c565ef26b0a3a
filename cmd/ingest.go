package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tagwing/birdtag/internal/config"
	"github.com/tagwing/birdtag/internal/ingest"
	"github.com/tagwing/birdtag/internal/notify"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder...]",
	Short: "Ingest local media files",
	Long: `Ingest media files from local folders: upload them to the blob store,
detect bird species and write the tag records.

By default, only files in the specified folders are ingested (non-recursive).
Use -r to search subdirectories as well.

Examples:
  birdtag ingest /path/to/photos
  birdtag ingest -r /path/to/recordings /path/to/photos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolP("recursive", "r", false, "Search for media recursively in subdirectories")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	recursive := mustGetBool(cmd, "recursive")

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	blobs, err := buildBlobStore(cfg)
	if err != nil {
		return err
	}

	detector, err := buildDetector(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Using %s species detector\n", detector.Name())

	filePaths, err := collectMediaFiles(args, recursive)
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		return fmt.Errorf("no media files found in %v", args)
	}

	pipeline := ingest.NewPipeline(blobs, detector, ingest.NewWriter(store),
		notify.NewNotifier(notify.NewWebhookSender()))

	bar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var failed int
	var tagged int
	for _, path := range filePaths {
		result, err := pipeline.IngestFile(cmd.Context(), path)
		if err != nil {
			fmt.Printf("\nFailed to ingest %s: %v\n", path, err)
			failed++
		} else if len(result.Species) > 0 {
			tagged++
		}
		_ = bar.Add(1)
	}
	fmt.Println()

	fmt.Printf("Ingested %d files (%d with detections, %d failed)\n",
		len(filePaths)-failed, tagged, failed)
	if failed > 0 {
		return fmt.Errorf("%d files failed to ingest", failed)
	}
	return nil
}

// collectMediaFiles gathers supported media files from the given folders.
func collectMediaFiles(folders []string, recursive bool) ([]string, error) {
	var filePaths []string

	for _, folder := range folders {
		if recursive {
			err := filepath.WalkDir(folder, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				if _, _, ok := ingest.Classify(path); ok {
					filePaths = append(filePaths, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("could not walk folder %s: %w", folder, err)
			}
			continue
		}

		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("could not read folder %s: %w", folder, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(folder, entry.Name())
			if _, _, ok := ingest.Classify(path); ok {
				filePaths = append(filePaths, path)
			}
		}
	}

	sort.Strings(filePaths)
	return filePaths, nil
}
