package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"rollingball/internal/models"
	"rollingball/pkg/config"
	"rollingball/pkg/rollingball"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Input microscopy image (PNG, JPEG or TIFF)")
	outputPath := flag.String("output", "", "Output filename for the background-subtracted image (default: <input>_subtracted.png)")
	configPath := flag.String("config", "rollingball.yaml", "Configuration file path")
	ballRadius := flag.Float64("radius", 0, "Rolling ball radius in pixels (overrides config)")
	smoothingSigma := flag.Float64("sigma", -1, "Gaussian pre-smoothing sigma in pixels (overrides config)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (overrides config)")
	saveBackground := flag.Bool("save-background", false, "Also save the estimated background image")
	writeConfig := flag.Bool("write-config", false, "Write a default configuration file to the -config path and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration file: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration and apply command line overrides
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *ballRadius > 0 {
		cfg.Subtraction.BallRadius = *ballRadius
	}
	if *smoothingSigma >= 0 {
		cfg.Subtraction.SmoothingSigma = *smoothingSigma
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *saveBackground {
		cfg.Output.SaveBackground = true
	}

	if cfg.Output.Verbose {
		fmt.Println("================================")
		fmt.Println("ROLLING BALL BACKGROUND SUBTRACTION")
		fmt.Printf("Ball radius: %.1f px, smoothing sigma: %.2f px, cores: %d\n",
			cfg.Subtraction.BallRadius, cfg.Subtraction.SmoothingSigma, cfg.Processing.NumCores)
		fmt.Println("================================")
	}

	// Load the input image and convert it to float64 intensities
	src, err := imaging.Open(*inputPath)
	if err != nil {
		log.Fatalf("Failed to open input image: %v", err)
	}
	img := models.FromImage(src)
	if cfg.Output.Verbose {
		fmt.Printf("Loaded %s (%dx%d pixels)\n", *inputPath, img.Cols, img.Rows)
	}

	// Build the subtractor and run the pipeline
	subtractor, err := rollingball.NewBackgroundSubtractor(rollingball.Params{
		BallRadius:     cfg.Subtraction.BallRadius,
		SmoothingSigma: cfg.Subtraction.SmoothingSigma,
		NumCores:       cfg.Processing.NumCores,
	})
	if err != nil {
		log.Fatalf("Failed to create background subtractor: %v", err)
	}
	defer subtractor.Close()

	startTime := time.Now()

	background, err := subtractor.EstimateBG(img.Data, img.Rows, img.Cols)
	if err != nil {
		log.Fatalf("Background estimation failed: %v", err)
	}

	subtracted, err := subtractor.RemoveBG(img.Data, img.Rows, img.Cols)
	if err != nil {
		log.Fatalf("Background subtraction failed: %v", err)
	}

	if cfg.Output.Verbose {
		fmt.Printf("Background estimated and removed in %.2f seconds\n", time.Since(startTime).Seconds())
	}

	// Save results
	outPath := *outputPath
	if outPath == "" {
		base := strings.TrimSuffix(*inputPath, filepath.Ext(*inputPath))
		outPath = base + "_subtracted.png"
	}

	subImg := &models.Image{Data: subtracted, Rows: img.Rows, Cols: img.Cols}
	if err := imaging.Save(subImg.ToGray16Normalized(), outPath); err != nil {
		log.Fatalf("Failed to save subtracted image: %v", err)
	}
	fmt.Printf("Background-subtracted image saved to: %s\n", outPath)

	if cfg.Output.SaveBackground {
		bgPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_background.png"
		bgImg := &models.Image{Data: background, Rows: img.Rows, Cols: img.Cols}
		if err := imaging.Save(bgImg.ToGray16(), bgPath); err != nil {
			log.Fatalf("Failed to save background image: %v", err)
		}
		fmt.Printf("Estimated background saved to: %s\n", bgPath)
	}
}
