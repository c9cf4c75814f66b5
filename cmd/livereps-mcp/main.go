package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/claude/livereps/internal/logging"
	livemcp "github.com/claude/livereps/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("url", "", "LiveReps server URL (e.g. https://livereps.tail1234.ts.net)")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("livereps-mcp", Version)
		return
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	log, closer := logging.New(logging.Params{Level: *logLevel, Stdout: os.Stderr})
	defer closer.Close()

	if *serverURL == "" {
		*serverURL = os.Getenv("LIVEREPS_URL")
	}
	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: livereps-mcp -url <LiveReps server URL>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	client := livemcp.NewHTTPClient(*serverURL)
	s := livemcp.New(client, Version, log)

	log.Info("serving MCP over stdio", "server", *serverURL)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server failed", "error", err)
		os.Exit(1)
	}
}
