package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/geojoin/geojoin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	args := os.Args[1:]
	if len(args) < 1 || args[0] != "join" {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet("join", flag.ExitOnError)
	sep := fs.String("sep", envOr("GEOJOIN_SEP", ","), "separator for merged values")
	out := fs.String("out", os.Getenv("GEOJOIN_OUT"), "output dataset path (default: derived from input names)")
	fieldsFlag := fs.String("fields", "", "comma-separated source fields to join (default: all)")
	zipOut := fs.Bool("zip", false, "bundle the output dataset into a zip archive")
	deleteAfter := fs.Bool("delete-after-zip", false, "delete the dataset files once zipped")

	positionals := parseInterleaved(fs, args[1:])
	if len(positionals) != 2 {
		usage()
		os.Exit(2)
	}
	destPath, sourcePath := positionals[0], positionals[1]

	var fields []string
	if *fieldsFlag != "" {
		for _, f := range strings.Split(*fieldsFlag, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	dest, err := geojoin.Open(destPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", destPath).Msg("cannot open destination dataset")
	}
	source, err := geojoin.Open(sourcePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", sourcePath).Msg("cannot open source dataset")
	}

	log.Info().
		Str("destination", destPath).
		Str("source", sourcePath).
		Int("features", dest.FeatureCount()).
		Msg("starting spatial join")

	outPath, err := geojoin.Join(dest, source, geojoin.JoinOptions{
		Separator:  *sep,
		OutputPath: *out,
		Fields:     fields,
		Progress:   renderProgress,
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("join failed")
	}
	log.Info().Str("output", outPath).Msg("join complete")

	if *zipOut {
		zipPath, err := geojoin.ArchiveDataset(outPath, *deleteAfter)
		if err != nil {
			log.Fatal().Err(err).Msg("archive failed")
		}
		log.Info().Str("archive", zipPath).Msg("output archived")
	}
}

// renderProgress draws a ten-segment bar on the carriage return.
func renderProgress(s geojoin.ProgressSample) {
	filled := s.Percent / 10
	fmt.Fprintf(os.Stderr, "\rprogress: [%s%s] %d/%d - %d",
		strings.Repeat("#", filled), strings.Repeat(" ", 10-filled),
		s.Done, s.Total, s.Percent)
}

// parseInterleaved parses fs against args, allowing flags before and
// after positional arguments.
func parseInterleaved(fs *flag.FlagSet, args []string) []string {
	var positionals []string
	fs.Parse(args)
	rest := fs.Args()
	for len(rest) > 0 {
		positionals = append(positionals, rest[0])
		fs.Parse(rest[1:])
		rest = fs.Args()
	}
	return positionals
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: geojoin join <dest.fgb> <source.fgb> [--sep S] [--out PATH] [--fields F1,F2,...] [--zip] [--delete-after-zip]`)
}
