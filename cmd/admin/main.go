package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"natalk/server/internal/config"
	"natalk/server/internal/storage"
)

// Operator CLI for the room snapshot and message logs. Runs against the same
// data directory as the server; intended for use while the server is down.
func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	store := storage.NewService(cfg.DataDir, cfg.RoomsFile, log)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <rooms|purge|sweep> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "rooms":
		if err := listRooms(store); err != nil {
			log.Fatalf("Error listing rooms: %v", err)
		}
	case "purge":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin purge <room_name>")
			os.Exit(1)
		}
		if err := store.TruncateLog(os.Args[2]); err != nil {
			log.Fatalf("Error purging log: %v", err)
		}
		fmt.Printf("Chat history for room %q has been cleared.\n", os.Args[2])
	case "sweep":
		maxAge := 24
		if len(os.Args) > 2 {
			var err error
			maxAge, err = strconv.Atoi(os.Args[2])
			if err != nil {
				fmt.Println("Invalid age. Please provide a number of hours.")
				os.Exit(1)
			}
		}
		if err := sweepLogs(store, time.Duration(maxAge)*time.Hour); err != nil {
			log.Fatalf("Error sweeping logs: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func listRooms(store *storage.Service) error {
	rooms, err := store.LoadRooms()
	if err != nil {
		return err
	}
	fmt.Printf("%d rooms\n", len(rooms))
	for id, room := range rooms {
		fmt.Printf("  %s  name=%q invite=%s profiles=%d created=%s\n",
			id, room.Name, room.InviteCode, len(room.UserProfiles),
			room.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func sweepLogs(store *storage.Service, maxAge time.Duration) error {
	rooms, err := store.LoadRooms()
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, room := range rooms {
		if room.CreatedAt.After(cutoff) {
			continue
		}
		if err := store.TruncateLog(room.Name); err != nil {
			return err
		}
		fmt.Printf("Cleared chat history for old room %q.\n", room.Name)
	}
	return nil
}
