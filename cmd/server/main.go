package main

import (
	"context"
	"log"

	"ghost-lap/server/internal/app"
)

func main() {
	cfg, err := app.ParseConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := app.Run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
