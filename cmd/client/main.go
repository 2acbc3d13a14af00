package main

import (
	"os"

	"tgdash/internal/client/app"
)

func main() {
	os.Exit(app.Execute())
}
