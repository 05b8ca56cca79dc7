package main

import (
	"log"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	duration   time.Duration
	bboxFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Drive load against a SAFEROUTE server",
	Long: `loadgen replays random routing and incident traffic against a running
server and prints latency, throughput and cache statistics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:8080", "server base URL")
	rootCmd.PersistentFlags().DurationVar(&duration, "duration", 30*time.Second, "test length (per step for closed and write)")
	rootCmd.PersistentFlags().StringVar(&bboxFlag, "bbox", "40.70,-74.02,40.78,-73.93", "minLat,minLng,maxLat,maxLng to draw endpoints from")

	rootCmd.AddCommand(openCmd, closedCmd, writeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
