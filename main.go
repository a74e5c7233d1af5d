package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
	"github.com/lsst-sqre/ltd-proxy/pkg/logger"
	"github.com/lsst-sqre/ltd-proxy/pkg/validation"
)

func main() {
	logger.SetFlags(logger.Lshortfile)
	flagSet := options.NewFlagSet()

	config := flagSet.String("config", "", "path to config file")
	showVersion := flagSet.Bool("version", false, "print version string")

	err := flagSet.Parse(os.Args[1:])
	if err != nil {
		logger.Printf("ERROR: Failed to parse flags: %v", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("ltd-proxy %s (built with %s)\n", VERSION, runtime.Version())
		return
	}

	opts := options.NewOptions()
	err = options.Load(*config, flagSet, opts)
	if err != nil {
		logger.Errorf("ERROR: Failed to load config: %v", err)
		os.Exit(1)
	}

	err = validation.Validate(opts)
	if err != nil {
		logger.Printf("%s", err)
		os.Exit(1)
	}

	proxy, err := NewLTDProxy(opts)
	if err != nil {
		logger.Errorf("ERROR: Failed to initialise LTD proxy: %v", err)
		os.Exit(1)
	}

	s := &Server{
		Handler: proxy,
		Opts:    opts,
		stop:    make(chan struct{}, 1),
	}
	// Observe signals in background goroutine.
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint
		s.stop <- struct{}{} // notify having caught signal
	}()
	s.ListenAndServe()
}
