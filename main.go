package main

import (
	"os"

	"github.com/bnbong/FastAPI-fastkit-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
