// Command matchcore-bench drives a synthetic multi-symbol order load
// directly against an in-process engine.Engine (no network hop) and
// reports submission throughput, match rate, and end-to-end latency.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"matchcore/engine"
	"matchcore/orderbook"
	"matchcore/wal"
)

func main() {
	duration := flag.Duration("duration", 5*time.Second, "how long to generate load")
	symbolCount := flag.Int("symbols", 4, "number of distinct symbols to spread load across")
	workers := flag.Int("workers", 0, "number of submitting goroutines (0 = NumCPU-2, minimum 1)")
	dataDir := flag.String("data-dir", "", "WAL directory (empty = a temp dir, removed on exit)")
	flag.Parse()

	if *workers <= 0 {
		*workers = runtime.NumCPU() - 2
		if *workers < 1 {
			*workers = 1
		}
	}

	dir := *dataDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "matchcore-bench-")
		if err != nil {
			fmt.Fprintln(os.Stderr, "mkdtemp:", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}

	w, err := wal.Open(filepath.Join(dir, "wal.jsonl"), wal.FlushPolicy{BatchedMs: 5})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open wal:", err)
		os.Exit(1)
	}
	defer w.Close()

	eng := engine.New(w, engine.Config{TreeKind: orderbook.TreeKindRedBlack})
	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)
	defer eng.Stop()
	defer cancel()

	symbols := make([]string, *symbolCount)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d-USD", i)
	}

	var orderCount, fillCount atomic.Int64
	stop := make(chan struct{})

	fmt.Printf("matchcore bench: %d workers, %d symbols, duration %v\n", *workers, *symbolCount, *duration)

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(workerID) + 1))
			n := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				symbol := symbols[n%len(symbols)]
				side := "BUY"
				if n%2 == 1 {
					side = "SELL"
				}
				price := fmt.Sprintf("%d", 100+rng.Intn(20))
				res, err := eng.SubmitOrder(ctx, symbol, side, price, "1", fmt.Sprintf("w%d-%d", workerID, n))
				if err == nil {
					orderCount.Add(1)
					fillCount.Add(int64(len(res.Fills)))
				}
				n++
			}
		}(i)
	}

	start := time.Now()
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	done := time.After(*duration)

loop:
	for {
		select {
		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			orders := orderCount.Load()
			fmt.Printf("[%.0fs] orders=%d (%.0f/s) fills=%d\n", elapsed, orders, float64(orders)/elapsed, fillCount.Load())
		case <-done:
			break loop
		}
	}

	close(stop)
	wg.Wait()

	elapsed := time.Since(start).Seconds()
	totalOrders := orderCount.Load()
	totalFills := fillCount.Load()

	fmt.Println("\n=== results ===")
	fmt.Printf("duration:        %.2fs\n", elapsed)
	fmt.Printf("total orders:    %d\n", totalOrders)
	fmt.Printf("total fills:     %d\n", totalFills)
	fmt.Printf("order throughput: %.0f/s\n", float64(totalOrders)/elapsed)
	if totalOrders > 0 {
		fmt.Printf("avg latency:      %.2f us/order\n", float64(*workers)*elapsed*1e6/float64(totalOrders))
	}

	for _, symbol := range symbols {
		top := eng.GetTopOfBook(symbol)
		fmt.Printf("%s: bid %s @ %s | ask %s @ %s\n", symbol, top.BestBidQty, top.BestBidPrice, top.BestAskQty, top.BestAskPrice)
	}
}
