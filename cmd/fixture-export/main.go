package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/veto/internal/config"
	"github.com/danielpatrickdp/veto/internal/replay"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to veto.db")
	days := flag.Int("days", 14, "export history from the last N days")
	configPath := flag.String("config", "", "config supplying the reference timezone")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" || *days < 1 {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/veto.db --out path/to/fixture.json [--days N] [--config veto.yaml]")
		os.Exit(2)
	}

	if err := run(*dbPath, *configPath, *days, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, configPath string, days int, outPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	since := time.Now().In(loc).AddDate(0, 0, -days).Format("2006-01-02")
	fx, err := replay.Export(context.Background(), st, loc, since)
	if err != nil {
		return err
	}
	fmt.Println(fx.Description)
	return writeFixture(fx, outPath)
}

// #endregion extract

// #region output

func writeFixture(fixture *replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d steps)\n", outPath, len(data), len(fixture.Steps))
	return nil
}

// #endregion output
