// Command report renders an HTML survey report from a detection database:
// severity and damage-type breakdowns plus a distance histogram.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/roadscan-data/surface.report/internal/store"
)

var (
	dbFile  = flag.String("db", "road_defects.db", "Path to the SQLite database file")
	outFile = flag.String("out", "report.html", "Output HTML file")
)

func main() {
	flag.Parse()

	db, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	defects, err := db.AllDefects()
	if err != nil {
		log.Fatalf("Failed to load defects: %v", err)
	}
	stats, err := db.GetStats()
	if err != nil {
		log.Fatalf("Failed to load stats: %v", err)
	}
	if len(defects) == 0 {
		log.Print("No defects recorded; nothing to report")
	}

	severityCounts := map[string]int{}
	damageCounts := map[string]int{}
	var distances []float64
	for _, d := range defects {
		severityCounts[string(d.Analysis.Severity.Severity)]++
		damageCounts[string(d.Analysis.Damage.Primary)]++
		if d.DistanceM != nil {
			distances = append(distances, *d.DistanceM)
		}
	}

	page := components.NewPage()
	page.PageTitle = "Road Surface Report"
	page.AddCharts(
		countBar("Defects by Severity", severityCounts),
		countBar("Defects by Damage Type", damageCounts),
		distanceHistogram(distances),
	)

	f, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	log.Printf("Report written to %s (%d detections, %d defects)",
		*outFile, stats.TotalDetections, stats.TotalDefects)
}

// countBar renders a sorted bar chart from label counts.
func countBar(title string, counts map[string]int) *charts.Bar {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	data := make([]opts.BarData, len(labels))
	for i, label := range labels {
		data[i] = opts.BarData{Value: counts[label]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("count", data)
	return bar
}

// distanceHistogram buckets sensed distances into 0.5 m bins.
func distanceHistogram(distances []float64) *charts.Bar {
	const binWidth = 0.5
	bins := map[int]int{}
	maxBin := 0
	for _, d := range distances {
		bin := int(d / binWidth)
		bins[bin]++
		if bin > maxBin {
			maxBin = bin
		}
	}

	labels := make([]string, maxBin+1)
	data := make([]opts.BarData, maxBin+1)
	for i := 0; i <= maxBin; i++ {
		labels[i] = fmt.Sprintf("%.1f-%.1f", float64(i)*binWidth, float64(i+1)*binWidth)
		data[i] = opts.BarData{Value: bins[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Defect Distance (m)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("count", data)
	return bar
}
