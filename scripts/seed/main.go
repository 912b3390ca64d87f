package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sendwave/internal/config"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Command-line flags
var (
	recipientsCount = flag.Int("recipients", 25, "Number of recipients per campaign")
	campaignsCount  = flag.Int("campaigns", 2, "Number of campaigns to create")
	channelsCount   = flag.Int("channels", 3, "Number of connected channels")
	clearData       = flag.Bool("clear", false, "Clear existing seed data before inserting")
	showHelp        = flag.Bool("help", false, "Show usage information")
)

func main() {
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	printInfo("=== Sendwave Database Seeder ===\n")

	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	printInfo("Connecting to database...")
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		printError(fmt.Sprintf("Failed to open database connection: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		printError(fmt.Sprintf("Failed to ping database: %v", err))
		os.Exit(1)
	}
	printSuccess("✓ Connected to database\n")

	if *clearData {
		if err := clearSeedData(db); err != nil {
			printError(fmt.Sprintf("Failed to clear seed data: %v", err))
			os.Exit(1)
		}
	}

	channelIDs, err := seedChannels(db, *channelsCount)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed channels: %v", err))
		os.Exit(1)
	}

	for i := 0; i < *campaignsCount; i++ {
		if err := seedCampaign(db, i+1, channelIDs, *recipientsCount); err != nil {
			printError(fmt.Sprintf("Failed to seed campaign %d: %v", i+1, err))
			os.Exit(1)
		}
	}

	printSuccess(fmt.Sprintf("\n✨ Seeded %d campaign(s) with %d recipients each across %d channel(s)",
		*campaignsCount, *recipientsCount, *channelsCount))
}

func clearSeedData(db *sql.DB) error {
	printWarning("Clearing existing data...")

	tables := []string{"send_records", "recipients", "campaign_channels", "message_variants", "campaigns", "channels"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	printSuccess("✓ Existing data cleared\n")
	return nil
}

func seedChannels(db *sql.DB, count int) ([]int, error) {
	printInfo(fmt.Sprintf("Creating %d connected channel(s)...", count))

	ids := make([]int, 0, count)
	for i := 0; i < count; i++ {
		var id int
		err := db.QueryRow(
			`INSERT INTO channels (org_id, number, state) VALUES ($1, $2, 'connected') RETURNING id`,
			1, fmt.Sprintf("+2547112233%02d", i+1),
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	printSuccess(fmt.Sprintf("✓ Created channels %v\n", ids))
	return ids, nil
}

func seedCampaign(db *sql.DB, n int, channelIDs []int, recipients int) error {
	printInfo(fmt.Sprintf("Creating campaign %d with %d recipients...", n, recipients))

	var campaignID int
	err := db.QueryRow(`
		INSERT INTO campaigns (org_id, name, status, min_interval_seconds, max_interval_seconds)
		VALUES ($1, $2, 'draft', $3, $4)
		RETURNING id
	`, 1, fmt.Sprintf("Seed Campaign %d", n), 5, 15).Scan(&campaignID)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	variants := []string{
		"Hi {name}, our new collection just dropped. Have a look!",
		"Hello {name}! Fresh arrivals this week, {city} delivery is free.",
	}
	for pos, body := range variants {
		if _, err := db.Exec(
			`INSERT INTO message_variants (campaign_id, position, body) VALUES ($1, $2, $3)`,
			campaignID, pos, body,
		); err != nil {
			return fmt.Errorf("failed to insert variant: %w", err)
		}
	}

	for _, channelID := range channelIDs {
		if _, err := db.Exec(
			`INSERT INTO campaign_channels (campaign_id, channel_id) VALUES ($1, $2)`,
			campaignID, channelID,
		); err != nil {
			return fmt.Errorf("failed to link channel: %w", err)
		}
	}

	firstNames := []string{"Amina", "Brian", "Cynthia", "David", "Esther", "Felix", "Grace", "Hassan"}
	cities := []string{"Nairobi", "Mombasa", "Kisumu", "Nakuru", "Eldoret"}

	for i := 0; i < recipients; i++ {
		attrs, err := json.Marshal(map[string]string{
			"city": cities[rand.Intn(len(cities))],
		})
		if err != nil {
			return fmt.Errorf("failed to marshal attributes: %w", err)
		}

		if _, err := db.Exec(`
			INSERT INTO recipients (campaign_id, phone, name, attributes)
			VALUES ($1, $2, $3, $4)
		`,
			campaignID,
			fmt.Sprintf("+2547%08d", rand.Intn(100000000)),
			firstNames[rand.Intn(len(firstNames))],
			attrs,
		); err != nil {
			return fmt.Errorf("failed to insert recipient: %w", err)
		}
	}

	printSuccess(fmt.Sprintf("✓ Campaign %d ready (id=%d)\n", n, campaignID))
	return nil
}

func printUsage() {
	fmt.Println("Usage: go run scripts/seed/main.go [flags]")
	fmt.Println()
	flag.PrintDefaults()
}

func printInfo(msg string) {
	fmt.Println(colorCyan + msg + colorReset)
}

func printSuccess(msg string) {
	fmt.Println(colorGreen + msg + colorReset)
}

func printWarning(msg string) {
	fmt.Println(colorYellow + msg + colorReset)
}

func printError(msg string) {
	fmt.Println(colorRed + "ERROR: " + msg + colorReset)
}
