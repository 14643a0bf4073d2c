package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mycos-run/mycos/chunkfmt"
	"github.com/mycos-run/mycos/internal/adjacency"
	"github.com/mycos-run/mycos/internal/layout"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Parse and validate chunks/links without running, reporting layout and CSR sizes",
	RunE:  runInspect,
}

func init() {
	flags := inspectCmd.Flags()
	flags.String("chunks", "", "directory of chunk binaries (required)")
	flags.String("links", "", "path to a link table binary (optional)")
	for _, name := range []string{"chunks", "links"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	chunksDir := viper.GetString("chunks")
	if chunksDir == "" {
		return errors.New("mycos: --chunks is required")
	}

	raw, err := loadChunkDir(chunksDir)
	if err != nil {
		return err
	}
	chunks := make([]*chunkfmt.Chunk, len(raw))
	for i, b := range raw {
		c, err := chunkfmt.Parse(b)
		if err != nil {
			return errors.Wrapf(err, "chunk %d", i)
		}
		chunks[i] = c
	}

	lo := layout.Build(chunks)
	fmt.Printf("chunks:   %d\n", len(chunks))
	fmt.Printf("inputs:   %d\n", lo.NumInput())
	fmt.Printf("internal: %d\n", lo.NumInternal())
	fmt.Printf("outputs:  %d\n", lo.NumOutput())
	fmt.Printf("total:    %d\n", lo.Total())

	rawLinks, err := loadLinksFile(viper.GetString("links"))
	if err != nil {
		return err
	}
	links, err := chunkfmt.ParseLinks(rawLinks)
	if err != nil {
		return errors.Wrap(err, "parsing links")
	}

	csr, err := adjacency.Build(chunks, links, lo)
	if err != nil {
		return errors.Wrap(err, "building adjacency")
	}
	fmt.Printf("links:    %d\n", len(links))
	fmt.Printf("max proposals per round: %d\n", csr.MaxProposalsPerRound())
	return nil
}
