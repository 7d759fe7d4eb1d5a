package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/domain/search/request"
	searchuc "github.com/kailas-cloud/facedex/internal/usecase/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <request.json>",
	Short: "Rank stored embeddings against a query offline",
	Long: `Run a similarity search over the embeddings in a JSON file and print the matches.
The file uses the body of POST /api/face/search-similar:

  {
    "queryEmbedding": [128 numbers],
    "allEmbeddings": [{"userId": "u1", "embedding": [128 numbers]}],
    "topN": 10,
    "threshold": 0.6
  }

No face model backend is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Bool("compact", false, "Print JSON on a single line")
}

type searchFile struct {
	QueryEmbedding domain.Embedding `json:"queryEmbedding"`
	AllEmbeddings  []struct {
		UserID    string           `json:"userId"`
		Embedding domain.Embedding `json:"embedding"`
	} `json:"allEmbeddings"`
	TopN      any `json:"topN"`
	Threshold any `json:"threshold"`
}

type searchMatch struct {
	UserID     string  `json:"userId"`
	Similarity float64 `json:"similarity"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(filepath.Clean(args[0]))
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	var body searchFile
	if err := json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	pool := make([]request.Candidate, len(body.AllEmbeddings))
	for i, c := range body.AllEmbeddings {
		pool[i] = request.Candidate{ID: c.UserID, Embedding: c.Embedding}
	}

	req, err := request.New(
		body.QueryEmbedding,
		pool,
		request.ParseTopN(body.TopN),
		request.ParseThreshold(body.Threshold, a.cfg.Face.SimilarityThreshold),
	)
	if err != nil {
		return err
	}

	matches := searchuc.New(a.logger).Search(cmd.Context(), &req)

	out := make([]searchMatch, len(matches))
	for i := range matches {
		out[i] = searchMatch{UserID: matches[i].ID(), Similarity: matches[i].Similarity()}
	}
	return printJSON(cmd, out, mustGetBool(cmd, "compact"))
}
