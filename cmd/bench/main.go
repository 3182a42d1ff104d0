// Command bench runs a synthetic workload against a chosen cache policy
// and exposes optional pprof/Prometheus endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/cachekit/cache"
	pmet "github.com/IvanBrykalov/cachekit/metrics/prom"
)

// bencher is the slice of the cache surface the workload needs.
type bencher interface {
	Get(k string) (string, bool)
	Len() int
}

func main() {
	// ---- Flags ----
	var (
		maxsize = flag.Int("maxsize", 100_000, "cache bound (entries)")
		policy  = flag.String("policy", "lru", "eviction policy: lru | fifo | lfu | rr | ttl | vttl")
		ttl     = flag.Duration("ttl", time.Minute, "ttl for the ttl/vttl policies")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = maxsize/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "cachekit", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	opt := cache.Options[string, string]{Capacity: *maxsize, Metrics: metrics}

	var c bencher
	var insert func(k, v string)
	switch *policy {
	case "lru":
		x := cache.NewLRU[string, string](*maxsize, opt)
		c, insert = x, func(k, v string) { x.Insert(k, v) }
	case "fifo":
		x := cache.NewFIFO[string, string](*maxsize, opt)
		c, insert = x, func(k, v string) { x.Insert(k, v) }
	case "lfu":
		x := cache.NewLFU[string, string](*maxsize, opt)
		c, insert = x, func(k, v string) { x.Insert(k, v) }
	case "rr":
		x := cache.NewRR[string, string](*maxsize, opt)
		c, insert = x, func(k, v string) { x.Insert(k, v) }
	case "ttl":
		x := cache.NewTTL[string, string](*maxsize, *ttl, opt)
		c, insert = x, func(k, v string) { x.Insert(k, v) }
	case "vttl":
		x := cache.NewVTTL[string, string](*maxsize, opt)
		c, insert = x, func(k, v string) { x.InsertTTL(k, v, *ttl) }
	default:
		log.Fatalf("unknown policy: %q", *policy)
	}

	// ---- Preload half the bound to get a realistic hit-rate ----
	pre := *preload
	if pre <= 0 {
		pre = *maxsize / 2
	}
	for i := 0; i < pre; i++ {
		insert("k:"+strconv.Itoa(i), "v")
	}

	// ---- Run workers ----
	log.Printf("bench: policy=%s maxsize=%d workers=%d reads=%d%% duration=%v",
		*policy, *maxsize, *workers, *readPct, *duration)

	var ops, hits atomic.Int64
	deadline := time.Now().Add(*duration)

	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		w := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(*seed + int64(w)*9973))
			z := rand.NewZipf(r, *zipfS, *zipfV, uint64(*keys-1))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.FormatUint(z.Uint64(), 10)
				if r.Intn(100) < *readPct {
					if _, ok := c.Get(k); ok {
						hits.Add(1)
					}
				} else {
					insert(k, "v")
				}
				ops.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	total := ops.Load()
	secs := (*duration).Seconds()
	if secs <= 0 {
		secs = 1
	}
	fmt.Printf("ops=%d (%.0f op/s)  hit-rate=%.1f%%  resident=%d\n",
		total, float64(total)/secs, 100*float64(hits.Load())/float64(total), c.Len())
}
