// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/unclebandit/partnerline/internal/config"
	"github.com/unclebandit/partnerline/internal/db"
	"github.com/unclebandit/partnerline/internal/logx"
)

func main() {
	dir := flag.String("dir", "seed", "directory of .sql seed files, applied in name order")
	flag.Parse()

	cfg, note, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	log := logx.New(cfg.LogLevel, cfg.LogConsole)
	if note != "" {
		log.Warn().Msg(note)
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	seedFiles, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatal().Err(err).Msg("list seed files")
	}
	sort.Strings(seedFiles)

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("read seed file")
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("execute seed file")
		}
		log.Info().Str("file", file).Msg("seeded")
	}

	log.Info().Int("files", len(seedFiles)).Msg("database seeding completed")
}
