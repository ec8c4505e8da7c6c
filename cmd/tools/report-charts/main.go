// Command report-charts renders a persisted session's observations as an
// HTML dashboard (gaze breakdown, stability over time) plus a standalone
// PNG of the stability window scores.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/podium-data/delivery.report/internal/api"
	"github.com/podium-data/delivery.report/internal/db"
	"github.com/podium-data/delivery.report/internal/security"
	"github.com/podium-data/delivery.report/internal/vision/storage/sqlite"
)

func main() {
	dbPath := flag.String("db", "delivery_report.db", "Path to the SQLite database")
	apiBase := flag.String("api", "", "Report API base URL; when set, sessions are fetched over HTTP instead of the database")
	sessionID := flag.String("session", "", "Session ID to render; latest session when empty")
	outDir := flag.String("out", "charts", "Output directory")
	flag.Parse()

	var rec *sqlite.SessionRecord
	var err error
	if *apiBase != "" {
		rec, err = fetchSession(api.NewClient(*apiBase, nil), *sessionID)
	} else {
		var database *db.DB
		database, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
		rec, err = loadSession(sqlite.NewObservationsStore(database.DB), *sessionID)
	}
	if err != nil {
		log.Fatalf("failed to load session: %v", err)
	}
	if rec == nil {
		log.Fatal("no session found")
	}

	if err := security.ValidateExportPath(*outDir); err != nil {
		log.Fatalf("refusing output directory: %v", err)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Session IDs come back from a flag or the database; never trust them
	// as filename material directly.
	baseName := security.SanitizeFilename(rec.SessionID)

	htmlPath := filepath.Join(*outDir, baseName+".html")
	if err := renderDashboard(rec, htmlPath); err != nil {
		log.Fatalf("failed to render dashboard: %v", err)
	}
	log.Printf("✓ Wrote %s", htmlPath)

	pngPath := filepath.Join(*outDir, baseName+"_stability.png")
	if err := renderStabilityPNG(rec, pngPath); err != nil {
		log.Fatalf("failed to render stability plot: %v", err)
	}
	log.Printf("✓ Wrote %s", pngPath)
}

func loadSession(store *sqlite.ObservationsStore, sessionID string) (*sqlite.SessionRecord, error) {
	if sessionID != "" {
		return store.Get(sessionID)
	}
	recs, err := store.List(1)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

func fetchSession(client *api.Client, sessionID string) (*sqlite.SessionRecord, error) {
	if sessionID != "" {
		return client.GetSession(sessionID)
	}
	summaries, err := client.ListSessions(1)
	if err != nil || len(summaries) == 0 {
		return nil, err
	}
	return client.GetSession(summaries[0].SessionID)
}

func renderDashboard(rec *sqlite.SessionRecord, path string) error {
	obs := rec.Observations

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Gaze Direction",
			Subtitle: fmt.Sprintf("session=%s grade=%s", rec.SessionID, obs.VideoQualityGrade),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("gaze", []opts.PieData{
		{Name: "audience-facing", Value: obs.GazeBreakdown.AudienceFacingPct},
		{Name: "notes-facing", Value: obs.GazeBreakdown.NotesFacingPct},
		{Name: "other", Value: obs.GazeBreakdown.OtherPct},
	})

	xs := make([]string, len(obs.StabilityWindowScores))
	ys := make([]opts.LineData, len(obs.StabilityWindowScores))
	for i, w := range obs.StabilityWindowScores {
		xs[i] = fmt.Sprintf("%.0fs", w.StartSeconds)
		ys[i] = opts.LineData{Value: w.Score}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Body Stability",
			Subtitle: fmt.Sprintf("classification=%s crossings=%d", obs.MovementClassification, obs.StageCrossingCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "score"}),
	)
	line.SetXAxis(xs)
	line.AddSeries("window score", ys)

	page := components.NewPage()
	page.PageTitle = "Delivery Report"
	page.AddCharts(pie, line)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func renderStabilityPNG(rec *sqlite.SessionRecord, path string) error {
	obs := rec.Observations

	p := plot.New()
	p.Title.Text = "Body Stability Windows"
	p.X.Label.Text = "window start (s)"
	p.Y.Label.Text = "score"
	p.Y.Min = 0
	p.Y.Max = 1

	pts := make(plotter.XYs, 0, len(obs.StabilityWindowScores))
	for _, w := range obs.StabilityWindowScores {
		pts = append(pts, plotter.XY{X: w.StartSeconds, Y: w.Score})
	}
	ln, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	ln.Width = vg.Points(1)
	p.Add(ln)

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
