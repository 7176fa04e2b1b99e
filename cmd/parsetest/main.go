package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"finetract/internal/parser"
)

// parsetest runs notification text through the parser without touching a
// database. Feed it a single message as arguments, or pipe one message
// per line on stdin.
func main() {
	p := parser.NewNotificationParser()

	if len(os.Args) >= 2 {
		source := "cli"
		body := os.Args[1]
		if len(os.Args) >= 3 {
			source = os.Args[1]
			body = os.Args[2]
		}
		parseOne(p, source, body)
		return
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		fmt.Println("Usage: parsetest [source] <message>")
		fmt.Println("       echo 'Rs. 500 debited at Swiggy' | parsetest")
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parseOne(p, "stdin", line)
		fmt.Println()
	}
}

func parseOne(p *parser.NotificationParser, source, body string) {
	fmt.Printf("Input: %q\n", body)

	txn, err := p.Parse(source, "", body, time.Now().UnixMilli())
	if err != nil {
		fmt.Printf("  rejected: %v\n", err)
		return
	}

	fmt.Printf("  Amount:      %.2f\n", txn.Amount)
	fmt.Printf("  Type:        %s\n", txn.Type)
	fmt.Printf("  Description: %s\n", txn.Description)
	fmt.Printf("  Category:    %s\n", txn.Category)
}
