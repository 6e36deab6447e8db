package main

import (
	"os"

	"github.com/my3-ai/concierge/conciergeservice"
)

func main() {
	if err := conciergeservice.Run(); err != nil {
		os.Exit(1)
	}
}
