package main

import (
	"log"
	"net/http"
	"os"

	"github.com/mit-pdos/vrcore/apps/kv"
	"github.com/mit-pdos/vrcore/config"
	"github.com/mit-pdos/vrcore/replica"
	"github.com/mit-pdos/vrcore/server"
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	var sm replica.StateMachine
	switch cfg.App {
	case config.AppKV:
		sm = kv.MakeKVState().StateMachine()
	case config.AppPlaceholder:
		sm = replica.Placeholder()
	}

	r, err := replica.MakeReplica(cfg.Addresses, cfg.Me, sm)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.DebugAddr != "" {
		go func() {
			log.Println(http.ListenAndServe(cfg.DebugAddr, server.DebugRouter(r)))
		}()
	}

	s := server.MakeServer(r)
	if _, err := s.Serve(cfg.ListenAddr()); err != nil {
		log.Fatal(err)
	}
	log.Printf("Started replica %d of %d running %s; primary is %s",
		cfg.Me, len(cfg.Addresses), cfg.App, r.PrimaryAddress())
	select {}
}
