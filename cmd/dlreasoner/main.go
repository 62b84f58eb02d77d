package main

import (
	"fmt"
	"os"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "dlreasoner: panic:", r)
			os.Exit(2)
		}
	}()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dlreasoner:", err)
		os.Exit(1)
	}
}
