// healthprobe is a tiny health-check client for container probes and CI.
// It exits 0 when the target endpoint answers 200 within the timeout.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:8080/healthz", "endpoint to probe")
	timeout := flag.Duration("timeout", 3*time.Second, "probe timeout")
	quiet := flag.Bool("quiet", false, "suppress output")
	flag.Parse()

	status, body, err := fasthttp.GetTimeout(nil, *url, *timeout)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "probe %s failed: %v\n", *url, err)
		}
		os.Exit(1)
	}
	if status != fasthttp.StatusOK {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "probe %s: status %d: %s\n", *url, status, body)
		}
		os.Exit(1)
	}
	if !*quiet {
		fmt.Printf("%s\n", body)
	}
}
