package main

import "os"

// @title Care Ops API
// @version 1.0.0
// @description Corrective action lifecycle for residential care staff
// @BasePath /api/v1
// @schemes http https

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
