package internal

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"youcube/contract"
	"youcube/domain"

	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

const defaultInspectLimit = 200

type InspectRow struct {
	ID          string
	Title       string
	SourceURL   string
	Resolutions string
	CreatedAt   string
}

type StatsProvider func() map[string]any

type PageData struct {
	Limit int
	Items []InspectRow
	Stats map[string]any
}

func ToInspectRow(record domain.AssetRecord) InspectRow {
	resolutions := lo.Map(record.Resolutions, func(r domain.Resolution, _ int) string {
		return fmt.Sprintf("%dx%d", r.Width, r.Height)
	})
	row := InspectRow{
		ID:          string(record.ID),
		Title:       record.Title,
		SourceURL:   record.SourceURL,
		Resolutions: strings.Join(resolutions, " "),
		CreatedAt:   record.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if row.Resolutions == "" {
		row.Resolutions = "audio only"
	}
	return row
}

// InspectHandler renders the asset index as an HTML page.
// The optional limit query parameter bounds the number of rows.
func InspectHandler(log *slog.Logger, assets contract.IAssetRepository, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := defaultInspectLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		records, err := assets.List(limit)
		if err != nil {
			log.Error("Failed to list assets", "error", err)
			http.Error(w, "failed to list assets", http.StatusInternalServerError)
			return
		}

		data := PageData{
			Limit: limit,
			Items: lo.Map(records, func(record domain.AssetRecord, _ int) InspectRow { return ToInspectRow(record) }),
			Stats: map[string]any{},
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Warn("Failed to render inspect page", "error", err)
		}
	})
}

// NewDebugServer exposes the inspect page on its own port, away from the websocket endpoint.
func NewDebugServer(log *slog.Logger, port int, assets contract.IAssetRepository, statsProvider StatsProvider) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/inspect", InspectHandler(log, assets, statsProvider))
	return &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", port),
		Handler: mux,
	}
}
