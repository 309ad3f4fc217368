// Command rentctl reconciles tenancies offline from JSON bundles.
//
//	rentctl reconcile -f bundle.json --as-of 2024-02-05
//	rentctl cycles --policy MIDMONTH --join 2024-01-31 --anchor 31 --as-of 2024-12-31 --price 9000
//	rentctl transfer --start 2024-03-01 --end 2024-03-31 --old 6000 --new 9000 --on 2024-03-16
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
