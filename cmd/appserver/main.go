package main

import (
	"fmt"
	"os"

	"github.com/chalkcast/appserver/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		a.Log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
