package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	writeClients string
	writeOut     string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "DB-bound incident write workload over increasing client counts",
	Long: `write posts random incidents to /incidents. Every accepted incident is
persisted and retires the server's route cache, so this measures the write path
and its effect on concurrent routing.`,
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringVar(&writeClients, "clients", "2,4,6,8,10,12,16,20", "comma separated client counts")
	writeCmd.Flags().StringVar(&writeOut, "out", "results_db.csv", "CSV output path")
}

type writeResult struct {
	Clients    int
	AvgLatency float64
	P50        float64
	P95        float64
	P99        float64
	Throughput float64
	Errors     int64
	Total      int64
}

func runWrite(cmd *cobra.Command, _ []string) error {
	counts, err := parseClients(writeClients)
	if err != nil {
		return err
	}
	box, err := parseBBox(bboxFlag)
	if err != nil {
		return err
	}

	warm := &http.Client{Timeout: 5 * time.Second}
	warm.Get(serverAddr + "/debug/clear_cache")

	fmt.Println("Running DB-bound WRITE workload (increasing clients)")

	var results []writeResult
	for _, n := range counts {
		fmt.Printf("\n== %d CLIENTS ==\n", n)
		res, err := runWriteTest(cmd.Context(), n, box)
		if err != nil {
			return err
		}
		results = append(results, res)
		fmt.Printf("RPS: %.2f | Avg %.2fms | P99 %.2fms | Errors=%d/%d\n",
			res.Throughput, res.AvgLatency, res.P99, res.Errors, res.Total)
	}

	fmt.Println("\nclients,avg_ms,p50,p95,p99,throughput,errors,total")
	for _, r := range results {
		fmt.Printf("%d,%.2f,%.2f,%.2f,%.2f,%.2f,%d,%d\n",
			r.Clients, r.AvgLatency, r.P50, r.P95, r.P99, r.Throughput, r.Errors, r.Total)
	}

	f, err := os.Create(writeOut)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Fprintf(f, "clients,avg_ms,p50,p95,p99,throughput,errors,total\n")
	for _, r := range results {
		fmt.Fprintf(f, "%d,%.2f,%.2f,%.2f,%.2f,%.2f,%d,%d\n",
			r.Clients, r.AvgLatency, r.P50, r.P95, r.P99, r.Throughput, r.Errors, r.Total)
	}
	fmt.Printf("\nSaved %s\n", writeOut)
	return nil
}

func runWriteTest(parent context.Context, clients int, box orb.Bound) (writeResult, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(parent, duration)
	defer cancel()

	var mu sync.Mutex
	var latencies []time.Duration
	var totalReq, totalErr int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < clients; w++ {
		seed := time.Now().UnixNano() + int64(w)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			for gctx.Err() == nil {
				body := map[string]any{
					"location": randomPoint(rng, box),
					"severity": 1 + rng.Intn(10),
					"context":  "loadgen",
				}

				start := time.Now()
				resp, err := postJSON(client, serverAddr+"/incidents", body)
				lat := time.Since(start)

				mu.Lock()
				totalReq++
				if err != nil {
					totalErr++
					mu.Unlock()
					continue
				}
				if resp.StatusCode != http.StatusCreated {
					totalErr++
				}
				latencies = append(latencies, lat)
				mu.Unlock()

				json.NewDecoder(resp.Body).Decode(&map[string]any{})
				resp.Body.Close()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return writeResult{}, err
	}

	p50, p95, p99 := computePercentiles(latencies)
	return writeResult{
		Clients:    clients,
		AvgLatency: computeAvg(latencies),
		P50:        p50,
		P95:        p95,
		P99:        p99,
		Throughput: float64(totalReq) / duration.Seconds(),
		Errors:     totalErr,
		Total:      totalReq,
	}, nil
}
