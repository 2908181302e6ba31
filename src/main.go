package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docbase/src/server"
	"docbase/src/settings"
)

// printUsage prints helpful usage information
func printUsage() {
	log.Println("docbase - a filterable, permission-gated document collection server")
	log.Println("\nUsage:")
	log.Println("  docbase [options]")
	log.Println("\nOptions:")
	flag.PrintDefaults()

	log.Println("\nExamples:")
	log.Println("  docbase --schema=schema.json")
	log.Println("  docbase --port=8086 --mongo=mongodb://localhost:27017 --auth")
}

func main() {
	// Get the global settings instance
	args := settings.GetSettings()

	// Define command line flags that map to the Arguments struct
	flag.StringVar(&args.MongoURI, "mongo", "mongodb://localhost:27017", "Connection string of the backing document store")
	flag.StringVar(&args.Database, "database", "docbase", "Database name")
	flag.StringVar(&args.SchemaFile, "schema", "", "Path to the JSON schema file declaring document types")
	flag.StringVar(&args.UsersFile, "users", "./users.json", "Path to the credential store (used with --auth)")
	flag.StringVar(&args.LogDir, "logdir", "", "Directory to store log files (default: stdout)")
	flag.StringVar(&args.Host, "host", "127.0.0.1", "Host name or IP address to listen on")
	flag.IntVar(&args.Port, "port", 8086, "Port for the HTTP server")
	flag.BoolVar(&args.Verbose, "verbose", false, "Enable verbose logging")
	flag.StringVar(&args.Mode, "mode", "standalone", "Operation mode (standalone, cluster)")
	flag.BoolVar(&args.AuthEnabled, "auth", false, "Enable authentication")
	flag.StringVar(&args.Version, "version", "0.0.1alpha", "Shows version")
	flag.BoolVar(&args.PrintToScreen, "print", true, "Print Log Messages to screen")
	flag.BoolVar(&args.Debug, "debug", false, "Enable debug mode")

	// Parse the command line
	flag.Parse()

	// Validate the arguments
	if err := validateArguments(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		printUsage()
		os.Exit(1)
	}

	// Print the arguments if in verbose mode
	if args.Verbose {
		log.Println("docbase starting with options:")
		log.Printf("  Mongo URI: %s\n", args.MongoURI)
		log.Printf("  Database: %s\n", args.Database)
		log.Printf("  Schema File: %s\n", args.SchemaFile)
		log.Printf("  Host: %s\n", args.Host)
		log.Printf("  Port: %d\n", args.Port)
		log.Printf("  Mode: %s\n", args.Mode)
		log.Printf("  Auth: %v\n", args.AuthEnabled)
	}

	srv, err := server.InitServer(args)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	// Shut down cleanly on interrupt
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}

func validateArguments(args *settings.Arguments) error {
	if args.MongoURI == "" {
		return fmt.Errorf("a document store connection string is required")
	}
	if args.Port <= 0 || args.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if args.Mode != "standalone" && args.Mode != "cluster" {
		return fmt.Errorf("mode must be standalone or cluster")
	}
	if args.AuthEnabled && args.UsersFile == "" {
		return fmt.Errorf("a users file is required when auth is enabled")
	}
	return nil
}
