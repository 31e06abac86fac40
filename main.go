package main

import (
	"log"

	"github.com/TrongtrongJ/eventeer/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
