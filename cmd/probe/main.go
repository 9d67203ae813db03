package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/deepfake-detector/detector-console/internal/analysis"
	"github.com/deepfake-detector/detector-console/internal/config"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🔍 Deepfake Detector Console - Connectivity Test")
	fmt.Println("================================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := analysis.NewClient(cfg.AnalysisAPIURL, 10*time.Second)

	fmt.Printf("\n📡 Testing Analysis Service at %s...\n", client.BaseURL())
	fmt.Println(strings.Repeat("-", 40))

	fmt.Print("🔸 Testing reachability... ")
	if err := client.Ping(ctx); err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
	} else {
		fmt.Println("✅ SUCCESS")
	}

	fmt.Print("🔸 Testing chat endpoint... ")
	reply, err := client.Chat(ctx, "ping")
	switch {
	case err != nil:
		fmt.Printf("❌ ERROR: %v\n", err)
	case reply == "":
		fmt.Println("⚠️  ANSWERED without a response field")
	default:
		fmt.Printf("✅ SUCCESS (%q)\n", truncate(reply, 60))
	}

	fmt.Println("\n📍 Analysis endpoints:")
	for _, ct := range models.ContentTypes {
		fmt.Printf("   • %-6s %s%s\n", ct, client.BaseURL(), analysis.Endpoint(ct))
	}

	fmt.Println("\n🗄️  Testing report archive...")
	fmt.Println(strings.Repeat("-", 40))
	testStorage(ctx, cfg)

	fmt.Println("\n📣 Notification channels:")
	printChannel("Teams", cfg.TeamsWebhookURL != "")
	printChannel("Email", cfg.NotificationEmail != "")

	fmt.Println("\n✅ Connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Start the Analysis Service if it is not responding")
	fmt.Println("   • Run the console with: go run ./cmd/console")
}

func testStorage(ctx context.Context, cfg *config.Config) {
	fmt.Printf("🔸 Testing %s archive... ", cfg.StorageBackend)

	store, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}
	if store == nil {
		fmt.Println("⚠️  DISABLED (STORAGE_BACKEND=none)")
		return
	}

	names, err := store.List(ctx, "reports/")
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	fmt.Printf("✅ SUCCESS (%d archived reports)\n", len(names))
}

func printChannel(name string, enabled bool) {
	if enabled {
		fmt.Printf("   • %-6s ✅ configured\n", name)
		return
	}
	fmt.Printf("   • %-6s ⚠️  DISABLED\n", name)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
