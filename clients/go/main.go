// deskroute CLI - Command line client for the deskroute support API
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/deskroute/deskroute/clients/go/deskroute"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("DESKROUTE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := deskroute.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "submit":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: deskroute submit <name> <email> <message...>")
			os.Exit(1)
		}
		resp, err := client.Submit(deskroute.SubmitRequest{
			Name:    os.Args[2],
			Email:   os.Args[3],
			Message: strings.Join(os.Args[4:], " "),
		})
		exitOnError(err)
		fmt.Printf("Ticket: %s (%s, %s)\n", resp.TicketID, resp.Category, resp.Priority)
		if resp.Escalated {
			fmt.Println("Escalated to a human agent.")
		}
		fmt.Println(resp.Reply)

	case "ticket":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: deskroute ticket <id>")
			os.Exit(1)
		}
		resp, err := client.TicketStatus(os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "lookup":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: deskroute lookup <email>")
			os.Exit(1)
		}
		resp, err := client.LookupByEmail(os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`deskroute CLI - support message routing

Usage: deskroute <command> [options]

Commands:
  submit <name> <email> <message...>  Submit a support request
  ticket <id>                         Show ticket status
  lookup <email>                      Look up a customer
  health                              Check server health

Environment:
  DESKROUTE_URL   API base URL (default http://localhost:8080)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
