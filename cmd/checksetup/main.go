// Command checksetup verifies the images directory before the server is started:
// every configured batch folder exists, holds images and is writable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"imageAnnotation/internal/config"
	"imageAnnotation/models"
	"imageAnnotation/repository"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checksetup", flag.ContinueOnError)
	batchID := fs.String("batch", "", "Check only this batch id")
	asJSON := fs.Bool("json", false, "Print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	uf, _, err := config.LoadUsers(cfg.Storage.UsersFile)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	users, err := repository.NewUserRepository(uf)
	if err != nil {
		return err
	}
	batches, err := repository.NewBatchRepository(uf, users, cfg.Storage.ImagesDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var targets []models.Batch
	if *batchID != "" {
		b, err := batches.Get(ctx, *batchID)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("unknown batch %q", *batchID)
		}
		targets = append(targets, *b)
	} else {
		targets = batches.List(ctx)
	}

	images := repository.NewImageRepository()
	results := make([]models.BatchCheck, 0, len(targets))
	for i := range targets {
		res, err := repository.CheckBatch(ctx, images, &targets[i])
		if err != nil {
			return fmt.Errorf("batch %s: %w", targets[i].ID, err)
		}
		results = append(results, res)
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printReport(out, cfg.Storage.ImagesDir, results)
	return nil
}

func printReport(out io.Writer, imagesDir string, results []models.BatchCheck) {
	fmt.Fprintf(out, "Images directory: %s\n", imagesDir)
	for _, r := range results {
		fmt.Fprintf(out, "\nBatch %s: %s\n", r.BatchID, r.FolderPath)
		if r.Created {
			fmt.Fprintln(out, "  folder was missing, created it")
		}
		if len(r.Images) == 0 {
			fmt.Fprintln(out, "  WARNING: no images found, add some to this folder")
		} else {
			fmt.Fprintf(out, "  %d image(s):\n", len(r.Images))
			for _, img := range r.Images {
				fmt.Fprintf(out, "  - %s\n", img)
			}
		}
		if r.Writable {
			fmt.Fprintln(out, "  permissions: OK")
		} else {
			fmt.Fprintf(out, "  ERROR: folder is not writable: %s\n", r.WriteError)
		}
	}
}
