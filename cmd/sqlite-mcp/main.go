package main

import (
	"flag"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dbchat-dev/dbchat/internal/sqlitemcp"
)

var dbPath = flag.String("db", "dbchat.db", "Path to the SQLite database file")

func main() {
	log.SetFlags(0)
	flag.Parse()

	store, err := sqlitemcp.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	if err := server.ServeStdio(sqlitemcp.New(store)); err != nil {
		log.Fatalf("failed to serve stdio: %v", err)
	}
}
