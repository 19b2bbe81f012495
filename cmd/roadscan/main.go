package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/roadscan-data/surface.report/internal/api"
	"github.com/roadscan-data/surface.report/internal/capture"
	"github.com/roadscan-data/surface.report/internal/config"
	"github.com/roadscan-data/surface.report/internal/defect"
	"github.com/roadscan-data/surface.report/internal/rplidar"
	"github.com/roadscan-data/surface.report/internal/runner"
	"github.com/roadscan-data/surface.report/internal/store"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	serialPort  = flag.String("serial", "/dev/ttyUSB0", "Ranging sensor serial port (empty disables ranging)")
	cameraURL   = flag.String("camera", "", "Snapshot camera URL")
	detectorURL = flag.String("detector", "", "Detector inference service URL")
	dbFile      = flag.String("db", "road_defects.db", "Path to the SQLite database file")
	photoDir    = flag.String("photos", "photos", "Directory for detection snapshots (empty disables)")
	configPath  = flag.String("config", "", "Tuning config JSON file (optional)")
	devMode     = flag.Bool("dev", false, "Run with synthetic camera and no-op detector")
)

// devFrameSource produces flat grey frames so the pipeline can run
// end-to-end without hardware.
type devFrameSource struct{}

func (devFrameSource) Grab() (*image.RGBA, error) {
	frame := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	grey := color.RGBA{R: 120, G: 120, B: 120, A: 255}
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i] = grey.R
		frame.Pix[i+1] = grey.G
		frame.Pix[i+2] = grey.B
		frame.Pix[i+3] = grey.A
	}
	return frame, nil
}

// devDetector never reports a defect.
type devDetector struct{}

func (devDetector) Detect(image.Image) ([]runner.BoxScore, error) { return nil, nil }

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		cfg = loaded
		log.Printf("Loaded tuning config from %s", *configPath)
	}

	db, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("Database ready at %s (session %s)", *dbFile, db.SessionID)

	sectors := defect.NewSectorAggregator(int(cfg.GetSectorWidthDeg()))

	var scanner runner.ScanRunner
	if *serialPort != "" && !*devMode {
		scanner = rplidar.NewDriver(*serialPort, cfg.GetSerialBaud(), sectors)
	} else {
		log.Print("Ranging sensor disabled; detections will have no distance data")
	}

	var frames capture.FrameSource
	var detector runner.Detector
	switch {
	case *devMode:
		log.Print("Dev mode: synthetic camera, no-op detector")
		frames = devFrameSource{}
		detector = devDetector{}
	case *cameraURL == "" || *detectorURL == "":
		log.Fatal("Both -camera and -detector are required outside dev mode")
	default:
		frames = capture.NewHTTPSource(*cameraURL)
		detector = runner.NewHTTPDetector(*detectorURL)
	}

	run := runner.New(runner.Config{
		HFOVDeg:         cfg.GetCameraHFOVDeg(),
		ScanInterval:    cfg.GetScanInterval(),
		AnalyzeInterval: cfg.GetAnalyzeInterval(),
		PhotoDir:        *photoDir,
	}, sectors, scanner, frames, detector, db)

	trackerCfg := defect.TrackerConfig{
		IoUThreshold:   cfg.GetIoUThreshold(),
		MaxAge:         cfg.GetTrackMaxAge(),
		SmoothingAlpha: cfg.GetSmoothingAlpha(),
	}
	run.SetTracker(defect.NewTracker(trackerCfg))

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		run.Run(ctx)
		log.Print("Detection cycle terminated")
	}()

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(api.NewServer(sectors, run, db).ServeMux()),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP server listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	wg.Wait()
}
