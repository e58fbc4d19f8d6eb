// Loadtest is a concurrent JSON-RPC load testing tool for the proxy. It
// hammers /rpc with eth_blockNumber requests and reports throughput, latency
// percentiles and error counts.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:3000/rpc -concurrency 10 -requests 1000
//	go run ./scripts/loadtest -url http://localhost:3000/rpc -method eth_chainId -requests 5000
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	var (
		url         = flag.String("url", "http://localhost:3000/rpc", "Proxy /rpc URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		method      = flag.String("method", "eth_blockNumber", "JSON-RPC method to call")
		timeoutSec  = flag.Int("timeout", 10, "Per-request timeout in seconds")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var success int32
	var rpcErrors int32
	var failure int32

	var latencies []time.Duration
	var latMu sync.Mutex

	start := time.Now()

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for id := range jobs {
				body := fmt.Sprintf(`{"jsonrpc":"2.0","method":%q,"params":[],"id":%d}`, *method, id)

				t0 := time.Now()
				resp, err := client.Post(*url, "application/json", bytes.NewReader([]byte(body)))
				elapsed := time.Since(t0)

				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}

				raw, _ := io.ReadAll(resp.Body)
				resp.Body.Close()

				var envelope struct {
					Error *struct {
						Code int `json:"code"`
					} `json:"error"`
				}

				if resp.StatusCode != http.StatusOK || json.Unmarshal(raw, &envelope) != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}

				if envelope.Error != nil {
					atomic.AddInt32(&rpcErrors, 1)
				} else {
					atomic.AddInt32(&success, 1)
				}

				latMu.Lock()
				latencies = append(latencies, elapsed)
				latMu.Unlock()
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	total := time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Printf("requests:   %d\n", *requests)
	fmt.Printf("duration:   %s\n", total)
	fmt.Printf("throughput: %.1f req/s\n", float64(*requests)/total.Seconds())
	fmt.Printf("success:    %d\n", success)
	fmt.Printf("rpc errors: %d\n", rpcErrors)
	fmt.Printf("failures:   %d\n", failure)

	if len(latencies) > 0 {
		fmt.Printf("p50: %s\n", percentile(latencies, 0.50))
		fmt.Printf("p90: %s\n", percentile(latencies, 0.90))
		fmt.Printf("p95: %s\n", percentile(latencies, 0.95))
		fmt.Printf("p99: %s\n", percentile(latencies, 0.99))
	}

	if failure > 0 {
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
