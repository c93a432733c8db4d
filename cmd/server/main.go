package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aha8693/chat-relay/internal/relay"
)

func main() {
	useUI := flag.Bool("ui", false, "run the terminal admin console")
	flag.Parse()

	fmt.Println("Starting chat-relay server...")

	config := relay.NewConfigFromEnv()
	server := relay.NewServer(config)

	if err := server.Start(); err != nil {
		log.Fatal(err)
	}

	var httpServer *http.Server
	if config.HTTPAddr != "" {
		mux := relay.SetupRoutes(server)
		httpServer = relay.CreateHTTPServer(config.HTTPAddr, mux)
		go func() {
			log.Printf("HTTP listener on %s (/ws, /healthz)", config.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	if *useUI {
		console, err := relay.NewConsole(server)
		if err != nil {
			log.Fatalf("Console init failed: %v", err)
		}
		if err := console.Run(); err != nil {
			log.Printf("Console error: %v", err)
		}
	} else {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
	}

	if httpServer != nil {
		if err := relay.ShutdownHTTPServer(httpServer, config.ShutdownTimeout); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
	}
	if err := server.Shutdown(config.ShutdownTimeout); err != nil {
		log.Printf("Relay shutdown error: %v", err)
	}
}
