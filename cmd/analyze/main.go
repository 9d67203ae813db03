package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepfake-detector/detector-console/internal/analysis"
	"github.com/deepfake-detector/detector-console/internal/config"
	"github.com/deepfake-detector/detector-console/internal/detector"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	contentType := flag.String("type", "", "content type: image, video, audio or link (guessed from the input when empty)")
	output := flag.String("o", "", "write the PDF report to this path")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-type image|video|audio|link] [-o report.pdf] <file or url>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ct, err := resolveType(*contentType, input)
	if err != nil {
		log.Fatalf("%v", err)
	}

	client := analysis.NewClient(cfg.AnalysisAPIURL, cfg.AnalysisTimeout)
	service := detector.NewService(cfg, client, nil, nil)
	controller, err := service.Controller(ct)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if ct.IsFile() {
		data, readErr := os.ReadFile(input)
		if readErr != nil {
			log.Fatalf("Failed to read %s: %v", input, readErr)
		}
		err = controller.SelectFile(filepath.Base(input), mime.TypeByExtension(filepath.Ext(input)), data)
	} else {
		err = controller.SelectURL(input)
	}
	if err != nil {
		log.Fatalf("%s", controller.Alert(err))
	}

	p := controller.Policy()
	fmt.Printf("%s %s\n", p.Icon, p.Title)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("📄 Input: %s\n", input)
	fmt.Printf("⏳ Analyzing with %s...\n", client.BaseURL())

	result, err := service.Analyze(context.Background(), ct)
	if err != nil {
		fmt.Printf("❌ %s: %v\n", controller.Alert(err), err)
		os.Exit(1)
	}

	printView(render.Render(p, result))

	if *output != "" {
		pdf, _, err := service.ExportReport(ct)
		if err != nil {
			log.Fatalf("Failed to export report: %v", err)
		}
		if err := os.WriteFile(*output, pdf, 0644); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		fmt.Printf("\n💾 Report saved to %s\n", *output)
	}
}

// knownExtensions covers media the system MIME table may not list
var knownExtensions = map[string]models.ContentType{
	".jpg":  models.ContentImage,
	".jpeg": models.ContentImage,
	".png":  models.ContentImage,
	".webp": models.ContentImage,
	".mp4":  models.ContentVideo,
	".mov":  models.ContentVideo,
	".webm": models.ContentVideo,
	".avi":  models.ContentVideo,
	".mp3":  models.ContentAudio,
	".wav":  models.ContentAudio,
	".m4a":  models.ContentAudio,
	".ogg":  models.ContentAudio,
	".flac": models.ContentAudio,
}

// resolveType honours an explicit -type, otherwise treats http(s) inputs as
// links and guesses the media type of files from their extension
func resolveType(explicit, input string) (models.ContentType, error) {
	if explicit != "" {
		return models.ParseContentType(explicit)
	}

	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return models.ContentLink, nil
	}

	ext := strings.ToLower(filepath.Ext(input))
	if ct, ok := knownExtensions[ext]; ok {
		return ct, nil
	}

	mediaType := mime.TypeByExtension(ext)
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return models.ContentImage, nil
	case strings.HasPrefix(mediaType, "video/"):
		return models.ContentVideo, nil
	case strings.HasPrefix(mediaType, "audio/"):
		return models.ContentAudio, nil
	}

	return "", fmt.Errorf("cannot tell the content type of %s, pass -type", input)
}

func printView(view *render.View) {
	marker := "✅"
	if view.Severity == render.SeverityAlert {
		marker = "🚨"
	}

	fmt.Printf("\n%s Verdict: %s\n", marker, view.Verdict)
	if view.BackendVerdict != view.Verdict {
		fmt.Printf("   (service verdict: %s)\n", view.BackendVerdict)
	}
	fmt.Printf("📈 %s: %s\n", view.ConfidenceLabel, view.ConfidenceText)

	fmt.Println("\n🔬 Contributing factors:")
	if len(view.Factors) == 0 {
		fmt.Println("   No specific forensic anomalies detected.")
	}
	for i, factor := range view.Factors {
		fmt.Printf("\n   %d. %s (%s)\n", i+1, factor.Title, render.Percent(factor.Score))
		if factor.Description != "" {
			fmt.Printf("      %s\n", factor.Description)
		}
	}
}
