package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/AllenNeuralDynamics/aind-data-transfer-models/internal/jobfile"
	"github.com/AllenNeuralDynamics/aind-data-transfer-models/schema"
)

// String can be overwritten by using linker flags: -ldflags "-X main.version=VERSION"
var version string = "DEVELOPMENT_VERSION"

var (
	workers   int
	outputDir string
	format    string
)

var rootCmd = &cobra.Command{
	Use:     "transfer-validator",
	Short:   "Validate upload job requests before they reach the transfer service",
	Version: version,
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate one or more request files and print the resolved configs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := pond.NewPool(workers)
		group := pool.NewGroup()

		var failures atomic.Int64
		for _, file := range args {
			group.Submit(func() {
				if err := validateFile(file); err != nil {
					failures.Add(1)
				}
			})
		}
		group.Wait()
		pool.StopAndWait()

		if n := failures.Load(); n > 0 {
			return fmt.Errorf("%d of %d request file(s) failed validation", n, len(args))
		}
		return nil
	},
}

func validateFile(file string) error {
	requestID := uuid.New()
	req, err := jobfile.Read(file)
	if err != nil {
		slog.Error("Request validation failed", "file", file, "request_id", requestID, "error", err.Error())
		return err
	}
	slog.Info("Request validated", "file", file, "request_id", requestID, "jobs", len(req.UploadJobs))

	resolved, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return err
	}
	if outputDir == "" {
		fmt.Println(string(resolved))
		return nil
	}
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	target := filepath.Join(outputDir, base+".resolved.json")
	if err := os.WriteFile(target, resolved, 0644); err != nil {
		slog.Error("Failed to write resolved request", "file", target, "error", err.Error())
		return err
	}
	slog.Info("Resolved request written", "file", target, "request_id", requestID)
	return nil
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the closed modality and platform catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := struct {
			Modalities []schema.Modality `json:"modalities" yaml:"modalities"`
			Platforms  []schema.Platform `json:"platforms" yaml:"platforms"`
		}{
			Modalities: schema.Modalities,
			Platforms:  schema.Platforms,
		}

		var out []byte
		var err error
		switch format {
		case "yaml":
			out, err = yaml.Marshal(catalog)
		case "json":
			out, err = json.MarshalIndent(catalog, "", "  ")
		default:
			return fmt.Errorf("unknown format %q, expected json or yaml", format)
		}
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func main() {
	// flag defaults can be overridden through TRANSFER_VALIDATOR_* env vars
	defaults := viper.New()
	defaults.SetEnvPrefix("TRANSFER_VALIDATOR")
	defaults.AutomaticEnv()
	defaults.SetDefault("workers", 4)
	defaults.SetDefault("format", "json")

	validateCmd.Flags().IntVar(&workers, "workers", defaults.GetInt("workers"), "number of request files to validate concurrently")
	validateCmd.Flags().StringVarP(&outputDir, "output", "o", defaults.GetString("output"), "directory to write resolved requests to (default stdout)")
	catalogCmd.Flags().StringVar(&format, "format", defaults.GetString("format"), "output format (json or yaml)")
	rootCmd.AddCommand(validateCmd, catalogCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
