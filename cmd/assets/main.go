package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"youcube/domain"
	"youcube/infrastructure/storage"
	"youcube/internal"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	dbPath := flag.String("db", config.BadgerFilepath, "Path to the asset index")
	limit := flag.Int("limit", 0, "Maximum number of assets to list, 0 lists everything")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	records, err := storage.NewAssetRepository(db, logs.GetLoggerFromString("WARN")).List(*limit)
	if err != nil {
		log.Fatal(err)
	}
	renderTable(os.Stdout, records)
}

func renderTable(w io.Writer, records []domain.AssetRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Title", "Source", "Video", "Created"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, record := range records {
		row := internal.ToInspectRow(record)
		table.Append([]string{row.ID, truncate(row.Title, 40), row.SourceURL, row.Resolutions, row.CreatedAt})
	}
	table.Render()
	fmt.Fprintf(w, "\n%d asset(s)\n", len(records))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}

// openDB opens the index read-only so it can be inspected while the server holds the lock.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
