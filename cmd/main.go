package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"vectorload/cmd/query"
	"vectorload/cmd/status"
	"vectorload/cmd/upload"
)

func main() {
	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:    "upload",
				Aliases: []string{"u"},
				Usage:   "Create the search index if needed and upload precomputed embeddings",
				Action:  upload.Upload,
			},
			{
				Name:    "status",
				Aliases: []string{"s"},
				Usage:   "Report the document count of the search index",
				Action:  status.Status,
			},
			{
				Name:      "query",
				Aliases:   []string{"q"},
				Usage:     "Embed a query and search the index for nearby documents",
				ArgsUsage: "<text>",
				Action:    query.Query,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
