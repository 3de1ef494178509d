// inspect dumps raw store records for debugging. Point it at a (closed)
// database directory and a key prefix such as "conn:", "msg:" or "inbox:".
package main

import (
	"flag"
	"fmt"
	"os"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/store"
)

func main() {
	var (
		db     string
		prefix string
		values bool
	)
	flag.StringVar(&db, "db", "", "database directory")
	flag.StringVar(&prefix, "prefix", "", "key prefix to scan (empty scans everything)")
	flag.BoolVar(&values, "values", false, "print record values as well")
	flag.Parse()
	if db == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}

	logger.Init("error")
	st, err := store.Open(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", db, err)
		os.Exit(1)
	}
	defer st.Close()

	kvs, err := st.ScanPrefix(prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan %q: %v\n", prefix, err)
		os.Exit(1)
	}
	for _, kv := range kvs {
		if values && len(kv.Value) > 0 {
			fmt.Printf("%s\t%s\n", kv.Key, kv.Value)
		} else {
			fmt.Println(kv.Key)
		}
	}
	fmt.Fprintf(os.Stderr, "%d records\n", len(kvs))
}
