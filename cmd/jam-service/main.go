// Package main — точка входа jam-service (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/zkerkeb-class/back-end-projet-final-team-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
