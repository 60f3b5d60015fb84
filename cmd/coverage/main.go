package main

import (
	"log"

	"github.com/jdeweedata/circletel-sub016/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("coverage engine failed to start: %v", err)
	}
}
