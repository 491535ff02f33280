// Package main is the entry point for the jianpu2midi API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/james-see/jianpu2midi/pkg/api"
	"github.com/james-see/jianpu2midi/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Port, "Server port")
	flag.Parse()
	cfg.Port = *port
	cfg.ConfigureLogging()

	logrus.Infof("Starting jianpu2midi API server on port %d...", cfg.Port)
	logrus.Infof("Swagger docs available at http://localhost:%d/swagger/index.html", cfg.Port)

	if err := api.StartServer(cfg); err != nil {
		logrus.WithError(err).Error("Server error")
		os.Exit(1)
	}
}
