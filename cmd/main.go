package main

import (
	"fmt"
	"os"

	"github.com/heliodesk/heliodesk-backend/internal/app"
	"github.com/heliodesk/heliodesk-backend/internal/platform/envutil"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		a.Log.Fatal("Failed to start background workers", "error", err)
	}

	addr := ":" + envutil.Get("PORT", "8080")
	a.Log.Info("Starting server", "addr", addr)
	if err := a.Run(addr); err != nil {
		a.Log.Fatal("Server exited", "error", err)
	}
}
