package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the minimal command surface the REPL dispatches to. App
// satisfies it; tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Avatar(ctx context.Context, args []string) error
	Verify(ctx context.Context) error
	Requests(ctx context.Context, args []string) error
	Wallet(ctx context.Context, args []string) error
}

// runREPL reads a line, dispatches the first token as a command, and loops
// until EOF or exit. Handler errors are printed by the handlers themselves;
// the loop never dies on one.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("credlink %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, avatar [upload <path>|delete], verify, requests [refresh], wallet [connect|unlink], logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "avatar":
			_ = a.Avatar(ctx, args)

		case "verify":
			_ = a.Verify(ctx)

		case "r", "requests":
			_ = a.Requests(ctx, args)

		case "wallet":
			_ = a.Wallet(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
