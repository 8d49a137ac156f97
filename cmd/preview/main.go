// Command preview prints the table previews the editor page would render for
// local or remote match data files.
package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"

	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/pkg/logger"
)

// Options holds the command-line configuration
type Options struct {
	Rows     int           `short:"r" long:"rows" env:"INGEST_PREVIEW_ROWS" default:"10" description:"Rows shown per collapsed table"`
	Expand   bool          `short:"e" long:"expand" description:"Show every row of every table"`
	Workers  int           `short:"w" long:"workers" env:"INGEST_DECODE_WORKERS" default:"8" description:"Concurrent decodes"`
	URLs     []string      `short:"u" long:"url" description:"Remote file to preload (repeatable)"`
	Timeout  time.Duration `long:"timeout" default:"30s" description:"Remote fetch timeout"`
	LogLevel string        `long:"log-level" env:"LOG_LEVEL" default:"warn" description:"Log level"`

	Args struct {
		Files []string `positional-arg-name:"FILE"`
	} `positional-args:"yes"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	log := logger.New(opts.LogLevel, "pretty")

	if len(opts.Args.Files) == 0 && len(opts.URLs) == 0 {
		fmt.Fprintln(os.Stderr, "no files given")
		parser.WriteHelp(os.Stderr)
		os.Exit(2)
	}

	session := ingest.NewSession(
		uuid.NewString(),
		ingest.Options{DecodeWorkers: opts.Workers, PreviewRows: opts.Rows},
		ingest.NewRefRegistry(),
		ingest.NewHTTPFetcher(opts.Timeout, 50*1024*1024),
		nil,
		log,
	)

	ctx := context.Background()
	exit := 0

	files, err := readFiles(opts.Args.Files)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read file")
		os.Exit(1)
	}
	res, err := session.AddFiles(ctx, files)
	if err != nil {
		log.Error().Err(err).Msg("Failed to ingest files")
		os.Exit(1)
	}
	notices := res.Notices

	if len(opts.URLs) > 0 {
		descs := make([]ingest.Descriptor, 0, len(opts.URLs))
		for _, u := range opts.URLs {
			descs = append(descs, ingest.Descriptor{URL: u, Name: filepath.Base(u)})
		}
		res, err := session.Preload(ctx, descs)
		if err != nil {
			log.Error().Err(err).Msg("Some remote files could not be fetched")
			exit = 1
		}
		notices = append(notices, res.Notices...)
	}

	snap := session.Snapshot()
	if opts.Expand {
		for _, t := range snap.Tables {
			session.ToggleExpansion(t.Name)
		}
	}

	out := os.Stdout
	for _, t := range snap.Tables {
		rows := session.VisibleRows(t.Name)
		fmt.Fprintf(out, "== %s (%d of %d rows)\n", t.Name, len(rows), len(t.Rows))
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, row := range rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		w.Flush()
		fmt.Fprintln(out)
	}
	for _, img := range snap.Images {
		fmt.Fprintf(out, "image %s -> %s\n", img.Name, img.Src)
	}
	for _, n := range notices {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", n.Severity, n.File, n.Message)
	}
	fmt.Fprintf(out, "%d uploads\n", len(snap.Uploads))

	session.Close()
	os.Exit(exit)
}

func readFiles(paths []string) ([]ingest.UploadedFile, error) {
	files := make([]ingest.UploadedFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, ingest.UploadedFile{
			Name:         filepath.Base(p),
			Size:         info.Size(),
			Type:         mime.TypeByExtension(filepath.Ext(p)),
			LastModified: info.ModTime().UnixMilli(),
			Data:         data,
		})
	}
	return files, nil
}
