package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mit-pdos/vrcore/clerk"
	"github.com/mit-pdos/vrcore/config"
)

func main() {
	var confStr string
	flag.StringVar(&confStr, "config", os.Getenv(config.EnvConfiguration), "comma-separated host:port of every replica")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: vrcli -config a:1,b:2 OP...")
		flag.PrintDefaults()
		os.Exit(1)
	}
	addrs, err := config.ParseAddresses(confStr)
	if err != nil {
		log.Fatal(err)
	}

	ck := clerk.Make(addrs)
	defer ck.Close()
	ret, err := ck.Apply([]byte(strings.Join(flag.Args(), " ")))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(ret))
}
