package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mit-pdos/vrcore/apps/kv"
	"github.com/mit-pdos/vrcore/config"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	var confStr string
	var nclients int
	var duration time.Duration
	flag.StringVar(&confStr, "config", os.Getenv(config.EnvConfiguration), "comma-separated host:port of every replica")
	flag.IntVar(&nclients, "clients", 8, "number of concurrent clerks")
	flag.DurationVar(&duration, "duration", 10*time.Second, "how long to run")
	flag.Parse()

	addrs, err := config.ParseAddresses(confStr)
	if err != nil {
		log.Fatal(err)
	}

	var ops uint64
	var failed uint64
	var done int32
	var wg sync.WaitGroup
	for c := 0; c < nclients; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			ck := kv.MakeClerk(addrs)
			defer ck.Close()
			for i := 0; atomic.LoadInt32(&done) == 0; i++ {
				if err := ck.Set(fmt.Sprintf("c%d-k%d", c, i%1000), "v"); err != nil {
					atomic.AddUint64(&failed, 1)
					continue
				}
				atomic.AddUint64(&ops, 1)
			}
		}(c)
	}

	start := time.Now()
	time.Sleep(duration)
	atomic.StoreInt32(&done, 1)
	wg.Wait()
	elapsed := time.Since(start)

	p := message.NewPrinter(language.English)
	p.Printf("%d clients: %d ops in %v, %.0f ops/sec, %d failed\n",
		nclients, ops, elapsed.Round(time.Millisecond), float64(ops)/elapsed.Seconds(), failed)
}
