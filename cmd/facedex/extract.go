package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/source"
)

var extractCmd = &cobra.Command{
	Use:   "extract [image-file]",
	Short: "Extract the face embedding of a single image",
	Long: `Run the extraction pipeline on one image and print the result as JSON.
The face model backend configured for the environment must be reachable.

Examples:
  # Local file
  facedex extract portrait.jpg

  # Remote image
  facedex extract --url https://example.com/portrait.jpg`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("url", "", "Download the image from this URL instead of reading a file")
	extractCmd.Flags().Bool("compact", false, "Print JSON on a single line")
}

type extractOutput struct {
	Success      bool             `json:"success"`
	Embedding    domain.Embedding `json:"embedding"`
	FaceDetected bool             `json:"faceDetected"`
	Error        *string          `json:"error"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	imageURL := mustGetString(cmd, "url")

	if imageURL == "" && len(args) == 0 {
		return errors.New("either provide an image file or use --url flag")
	}
	if imageURL != "" && len(args) > 0 {
		return errors.New("cannot specify both an image file and --url flag")
	}

	var src source.Source
	if imageURL != "" {
		src = source.FromURL(imageURL)
	} else {
		data, err := os.ReadFile(filepath.Clean(args[0]))
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		src = source.FromFile(data)
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	emb, err := a.buildExtractor(a.buildModel()).Extract(cmd.Context(), src)

	out := extractOutput{Success: err == nil, Embedding: emb, FaceDetected: err == nil}
	if err != nil {
		if !domain.IsExtractionFailure(err) && !errors.Is(err, domain.ErrInvalidBase64) {
			return fmt.Errorf("extraction failed: %w", err)
		}
		msg := err.Error()
		out.Error = &msg
	}

	return printJSON(cmd, out, mustGetBool(cmd, "compact"))
}

func printJSON(cmd *cobra.Command, v any, compact bool) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
