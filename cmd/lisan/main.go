package main

import (
	"os"

	"horse.fit/lisan/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
