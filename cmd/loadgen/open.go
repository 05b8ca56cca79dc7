package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/atharv3903/saferoute/internal/db"
	"github.com/atharv3903/saferoute/internal/model"
)

var (
	openDriver string
	openDSN    string
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Single client issuing random /route requests back to back",
	RunE:  runOpen,
}

func init() {
	openCmd.Flags().StringVar(&openDriver, "driver", "mysql", "catalog driver when --dsn is set")
	openCmd.Flags().StringVar(&openDSN, "dsn", "", "catalog DSN; when set, endpoints are drawn from facility locations")
}

func runOpen(cmd *cobra.Command, _ []string) error {
	box, err := parseBBox(bboxFlag)
	if err != nil {
		return err
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	var points []model.Coordinate
	if openDSN != "" {
		points, err = loadFacilityPoints(cmd.Context(), openDriver, openDSN)
		if err != nil {
			return err
		}
		log.Printf("Loaded %d facility locations", len(points))
	}
	pick := func() model.Coordinate {
		if len(points) > 1 {
			return points[rnd.Intn(len(points))]
		}
		return randomPoint(rnd, box)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	// clear cache before test to avoid cumulative stats
	if _, err := client.Get(serverAddr + "/debug/clear_cache"); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	log.Println("Cache cleared")
	log.Printf("Running loadgen for %v…", duration)

	ctx, cancel := context.WithTimeout(cmd.Context(), duration)
	defer cancel()

	var totalReq, totalErr, totalHit, totalNoRoute int64
	var latencies []time.Duration

	for ctx.Err() == nil {
		start := time.Now()
		resp, err := postJSON(client, serverAddr+"/route", routeRequest(pick(), pick()))
		lat := time.Since(start)

		totalReq++
		latencies = append(latencies, lat)

		if err != nil {
			totalErr++
			continue
		}
		var rr routeResp
		json.NewDecoder(resp.Body).Decode(&rr)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			totalNoRoute++
		case resp.StatusCode != http.StatusOK:
			totalErr++
		case rr.CacheHit:
			totalHit++
		}
	}

	stats := cacheStatsResp{}
	if resp, err := client.Get(serverAddr + "/debug/cache_stats"); err == nil {
		json.NewDecoder(resp.Body).Decode(&stats)
		resp.Body.Close()
	}

	fmt.Println("\n========== LOADGEN SUMMARY ==========")
	fmt.Printf("Total Requests: %d\n", totalReq)
	fmt.Printf("Errors: %d\n", totalErr)
	fmt.Printf("No Route: %d\n", totalNoRoute)

	if totalReq > 0 {
		fmt.Printf("RouteCache Hit Rate: %.1f%%\n", float64(totalHit)/float64(totalReq)*100)
	}
	if g := stats.Graph; g.Gets > 0 {
		fmt.Printf("GraphCache Hit Rate: %.1f%% (gets=%d, hits=%d, builds=%d, evictions=%d, expirations=%d)\n",
			float64(g.Hits)/float64(g.Gets)*100, g.Gets, g.Hits, g.Builds, g.Evictions, g.Expirations)
	}

	if len(latencies) > 0 {
		p50, p95, p99 := computePercentiles(latencies)
		fmt.Printf("Avg Latency: %.2fms\n", computeAvg(latencies))
		fmt.Printf("P50/P95/P99: %.2fms / %.2fms / %.2fms\n", p50, p95, p99)
	}
	fmt.Println("=====================================")
	return nil
}

func loadFacilityPoints(ctx context.Context, driver, dsn string) ([]model.Coordinate, error) {
	conn, err := db.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	facilities, err := db.Store{DB: conn, Driver: driver}.AllFacilities(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]model.Coordinate, len(facilities))
	for i, f := range facilities {
		points[i] = f.Location
	}
	return points, nil
}
