package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/presbrey/ircd/irc"
	"github.com/presbrey/ircd/irc/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <port> <password>\n", os.Args[0])
}

// parsePort enforces the CLI contract strictly: a decimal integer in
// [1, 65535] with no leading zeros and no sign.
func parsePort(s string) (int, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid port %q", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return n, nil
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	port, err := parsePort(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(1)
	}
	password := os.Args[2]
	if password == "" {
		fmt.Fprintln(os.Stderr, "password must not be empty")
		usage()
		os.Exit(1)
	}

	cfgPath := os.Getenv("IRCD_CONFIG")
	if len(os.Args) > 3 {
		cfgPath = os.Args[3]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	server := irc.NewServer(password, cfg)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Fatalf("failed to bind :%d: %v", port, err)
	}
	log.Printf("%s listening on :%d", cfg.ServerName, port)

	go func() {
		if err := server.Serve(ln); err != nil {
			log.Printf("accept loop exited: %v", err)
		}
	}()

	if cfg.Admin.Listen != "" {
		go func() {
			log.Printf("admin HTTP surface listening on %s", cfg.Admin.Listen)
			if err := server.ServeAdmin(cfg.Admin.Listen); err != nil {
				log.Printf("admin HTTP surface exited: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutting down...")
	server.Stop()
	log.Println("stopped")
}
