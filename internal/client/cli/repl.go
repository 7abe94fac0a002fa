package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	hasCheckout() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Checkout(ctx context.Context, args []string) error
	Method(args []string) error
	Confirm(ctx context.Context) error
	Card(ctx context.Context) error
	Bank(args []string) error
	Proceed(ctx context.Context) error
	Transferred(ctx context.Context) error
	Back() error
	Status(ctx context.Context) error
	Refund(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the checkout CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user types
// "exit" or "quit".
//
//	Not logged in:
//	  - help                                  show available commands
//	  - login                                 authenticate
//	  - exit | quit                           leave the program
//
//	Logged in:
//	  - whoami                                show the current session
//	  - checkout <id> <amount> <title>|<tutor> start buying a course
//	  - method card|bank                      choose the payment method
//	  - confirm                               create the transaction
//	  - card                                  enter card details and pay
//	  - bank <code>                           pick the bank for a transfer
//	  - proceed                               register the bank transfer
//	  - transferred                           confirm the money was sent
//	  - back                                  go one step back
//	  - status                                show the checkout state
//	  - refund                                request a refund of a paid course
//	  - logout                                log out
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pay %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				printlnFn("Available commands: login, exit")
			case "login":
				_ = a.Login(ctx)
			case "exit", "quit":
				printlnFn("Bye!")
				return
			default:
				printlnFn("Please log in first (type 'login')")
			}
			continue
		}

		switch cmd {
		case "help":
			if a.hasCheckout() {
				printlnFn("Available commands: method, confirm, card, bank, proceed, transferred, back, status, refund, checkout, whoami, logout, exit")
			} else {
				printlnFn("Available commands: checkout <courseId> <amount> <title>|<tutor>, whoami, logout, exit")
			}

		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "checkout":
			_ = a.Checkout(ctx, args)
		case "method":
			_ = a.Method(args)
		case "confirm":
			_ = a.Confirm(ctx)
		case "card":
			_ = a.Card(ctx)
		case "bank":
			_ = a.Bank(args)
		case "proceed":
			_ = a.Proceed(ctx)
		case "transferred":
			_ = a.Transferred(ctx)
		case "back":
			_ = a.Back()
		case "status":
			_ = a.Status(ctx)
		case "refund":
			_ = a.Refund(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// Root runs the interactive session. If no stored session exists the user
// is asked to log in first.
func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to the course checkout CLI (type 'help' for commands)")

	if !a.isLoggedIn() {
		_ = a.Login(ctx)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}
