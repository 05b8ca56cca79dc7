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
	closedClients string
	closedOut     string
)

var closedCmd = &cobra.Command{
	Use:   "closed",
	Short: "Closed-loop /route test over increasing client counts",
	RunE:  runClosed,
}

func init() {
	closedCmd.Flags().StringVar(&closedClients, "clients", "2,4,8,16,32,64", "comma separated client counts")
	closedCmd.Flags().StringVar(&closedOut, "out", "results.csv", "CSV output path")
}

type closedResult struct {
	Clients    int
	AvgLatency float64
	Throughput float64
}

func runClosed(cmd *cobra.Command, _ []string) error {
	counts, err := parseClients(closedClients)
	if err != nil {
		return err
	}
	box, err := parseBBox(bboxFlag)
	if err != nil {
		return err
	}

	// warm the server (so cold-start effects don't matter)
	warm := &http.Client{Timeout: 5 * time.Second}
	warm.Get(serverAddr + "/debug/clear_cache")

	var results []closedResult
	for _, n := range counts {
		fmt.Printf("\n== Running test with %d clients ==\n", n)
		avg, rps, err := runClosedLoop(cmd.Context(), n, box)
		if err != nil {
			return err
		}
		results = append(results, closedResult{Clients: n, AvgLatency: avg, Throughput: rps})
	}

	fmt.Println("\n========== CLOSED-LOOP RESULTS (CSV) ==========")
	fmt.Println("clients,avg_latency_ms,throughput_rps")
	for _, r := range results {
		fmt.Printf("%d,%.4f,%.2f\n", r.Clients, r.AvgLatency, r.Throughput)
	}
	fmt.Println("===============================================")

	f, err := os.Create(closedOut)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Fprintf(f, "clients,avg_latency_ms,throughput_rps\n")
	for _, r := range results {
		fmt.Fprintf(f, "%d,%.4f,%.2f\n", r.Clients, r.AvgLatency, r.Throughput)
	}
	return nil
}

// runClosedLoop keeps clients requests in flight for one duration step.
func runClosedLoop(parent context.Context, clients int, box orb.Bound) (float64, float64, error) {
	transport := &http.Transport{
		MaxIdleConns:        500,
		MaxIdleConnsPerHost: 500,
		MaxConnsPerHost:     2000,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}
	client := &http.Client{Transport: transport, Timeout: 5 * time.Second}
	defer transport.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(parent, duration)
	defer cancel()

	var mu sync.Mutex
	var totalLatency time.Duration
	var totalReq int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < clients; i++ {
		seed := time.Now().UnixNano() + int64(i)
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(seed))
			for gctx.Err() == nil {
				start := time.Now()
				resp, err := postJSON(client, serverAddr+"/route", routeRequest(randomPoint(rnd, box), randomPoint(rnd, box)))
				lat := time.Since(start)
				if err != nil {
					continue
				}
				json.NewDecoder(resp.Body).Decode(&routeResp{})
				resp.Body.Close()

				mu.Lock()
				totalLatency += lat
				totalReq++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	if totalReq == 0 {
		return 0, 0, nil
	}
	avg := float64(totalLatency.Microseconds()) / 1000 / float64(totalReq)
	return avg, float64(totalReq) / duration.Seconds(), nil
}
