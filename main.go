package main

import (
	"log"

	"github.com/sjzar/regionwatch/cmd/regionwatch"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	regionwatch.Execute()
}
