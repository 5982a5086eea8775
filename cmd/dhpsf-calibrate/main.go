package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/dhpsf-tools-mcp/internal/calibration"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/config"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/detection"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/imaging"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/store"
)

// options holds the command line flags.
type options struct {
	frameDir    string
	configPath  string
	modelOut    string
	annotateDir string
	dbPath      string
	workers     int
	bound       float64
	verbose     bool
}

func main() {
	// Parse command line arguments
	var o options
	flag.StringVar(&o.frameDir, "dir", "", "Directory of calibration frames named by defocus (e.g. -1.5.tif)")
	flag.StringVar(&o.configPath, "config", "dhpsf.yaml", "Configuration file")
	flag.StringVar(&o.modelOut, "model", "", "Write the fitted model to this YAML file (default: calibration.modelPath)")
	flag.StringVar(&o.annotateDir, "annotate", "", "Save frames with marked lobe centroids to this directory")
	flag.StringVar(&o.dbPath, "db", "", "Record the run in this SQLite database (default: storage.dbPath)")
	flag.IntVar(&o.workers, "workers", 0, "Frames measured in parallel (default: calibration.workers)")
	flag.Float64Var(&o.bound, "bound", 0, "Fit only frames with |defocus| below this (default: calibration.defocusBound)")
	flag.BoolVar(&o.verbose, "v", false, "Verbose output")
	flag.Parse()

	if o.frameDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, o)
	stop()
	if err != nil {
		log.Printf("dhpsf-calibrate: %v", err)
		os.Exit(1)
	}
}

// run measures the sweep, fits and saves the model, and records the run.
// A failed fit is still recorded before run returns its error.
func run(ctx context.Context, o options) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.workers > 0 {
		cfg.Calibration.Workers = o.workers
	}
	if o.bound > 0 {
		cfg.Calibration.DefocusBound = o.bound
	}
	if o.modelOut != "" {
		cfg.Calibration.ModelPath = o.modelOut
	}
	if o.dbPath != "" {
		cfg.Storage.DBPath = o.dbPath
	}

	opts, err := cfg.DetectionOptions()
	if err != nil {
		return fmt.Errorf("invalid detection config: %w", err)
	}
	est, err := detection.NewEstimator(opts)
	if err != nil {
		return fmt.Errorf("invalid detection config: %w", err)
	}

	frames, err := calibration.DiscoverFrames(o.frameDir)
	if err != nil {
		return err
	}
	if o.verbose {
		fmt.Printf("Found %d frames in %s\n", len(frames), o.frameDir)
		fmt.Printf("Detection: method=%s threshold=%.3f polarity=%s connectivity=%d\n",
			opts.Method, opts.Threshold, opts.Polarity, int(opts.Connectivity))
	}

	startTime := time.Now()
	loader := cfg.IntensityLoader()
	sweep, err := calibration.NewRunner(loader, est, cfg.Calibration.Workers).Run(ctx, frames)
	if err != nil {
		return fmt.Errorf("calibration sweep: %w", err)
	}
	elapsed := time.Since(startTime)

	fit, fitErr := sweep.Fit(calibration.WithinDefocus(cfg.Calibration.DefocusBound))

	printSweep(sweep, fit)
	fmt.Printf("\nMeasured %d of %d frames in %.2fs with %d workers\n",
		len(sweep.Results), len(frames), elapsed.Seconds(), cfg.Calibration.Workers)

	if fitErr != nil {
		fmt.Printf("Fit failed: %v\n", fitErr)
	} else {
		fmt.Printf("Fit over |defocus| < %g: angle = %.4f * defocus + %.4f  (R^2 = %.5f, %d samples)\n",
			cfg.Calibration.DefocusBound, fit.Model.Slope, fit.Model.Intercept, fit.RSquared, len(fit.Used))

		mf := calibration.NewModelFile(fit, cfg.Calibration.DefocusBound)
		if err := calibration.SaveModel(mf, cfg.Calibration.ModelPath); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
		fmt.Printf("Model saved to: %s\n", cfg.Calibration.ModelPath)
	}

	if o.annotateDir != "" {
		if err := saveAnnotated(o.annotateDir, sweep); err != nil {
			log.Printf("Warning: Failed to save annotated frames: %v", err)
		} else {
			fmt.Printf("Annotated frames saved to: %s\n", o.annotateDir)
		}
	}

	if cfg.Storage.DBPath != "" {
		runs, err := store.NewStore(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer runs.Close()

		rec := store.NewRun(o.frameDir, opts, cfg.Calibration.DefocusBound, sweep, fit, fitErr)
		id, err := runs.SaveRun(ctx, rec)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		fmt.Printf("Run recorded: %s\n", id)
	}

	if fitErr != nil {
		return fmt.Errorf("fit: %w", fitErr)
	}
	return nil
}

// printSweep prints one line per frame: measured angle, the fit's prediction
// and residual, or the reason the frame failed.
func printSweep(sweep *calibration.Sweep, fit *calibration.Fit) {
	fmt.Printf("%10s  %10s  %10s  %10s  %s\n", "defocus", "angle", "predicted", "residual", "frame")
	fmt.Println(strings.Repeat("-", 72))
	for _, r := range sweep.Results {
		angle := r.Estimate.AngleDegrees
		if fit != nil {
			pred := fit.Model.Angle(r.Frame.Defocus)
			fmt.Printf("%10.3f  %10.3f  %10.3f  %10.3f  %s\n",
				r.Frame.Defocus, angle, pred, angle-pred, filepath.Base(r.Frame.Path))
		} else {
			fmt.Printf("%10.3f  %10.3f  %10s  %10s  %s\n",
				r.Frame.Defocus, angle, "-", "-", filepath.Base(r.Frame.Path))
		}
	}
	for _, f := range sweep.Failures {
		fmt.Printf("%10.3f  %10s  %10s  %10s  %s: %v\n",
			f.Frame.Defocus, "FAILED", "-", "-", filepath.Base(f.Frame.Path), f.Err)
	}
}

// saveAnnotated writes each measured frame's mask with its two lobe centroids marked.
func saveAnnotated(dir string, sweep *calibration.Sweep) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, r := range sweep.Results {
		name := strings.TrimSuffix(filepath.Base(r.Frame.Path), filepath.Ext(r.Frame.Path)) + ".png"
		img := imaging.AnnotateCentroids(r.Estimate.Mask, r.Estimate.First, r.Estimate.Second)
		if err := imaging.SavePNG(filepath.Join(dir, name), img); err != nil {
			return err
		}
	}
	return nil
}
