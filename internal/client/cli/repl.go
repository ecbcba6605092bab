package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the command surface the REPL dispatches to. The real
// App satisfies it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Search(ctx context.Context, pattern string) error
	List(ctx context.Context) error
	Add(ctx context.Context) error
	Import(ctx context.Context, path string) error
	Image(ctx context.Context, serial, path string) error
	AddUser(ctx context.Context) error
	Health(ctx context.Context) error
}

const (
	helpGuest = "Available commands: login, health, exit"
	helpUser  = "Available commands: (s)earch <serial>, (l)ist, image <serial> <file>, whoami, logout, health, exit"
	helpAdmin = helpUser + "\nAdmin commands: add, import <file.xlsx|file.csv>, adduser"
)

// runREPL reads commands line by line from reader and dispatches them to
// a. Commands that need a session are refused while signed out, admin
// commands are refused for other roles. Handler errors are printed and the
// loop continues. It returns on EOF or on "exit"/"quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "el %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			switch {
			case a.isAdmin():
				fmt.Fprintln(w, helpAdmin)
			case a.isLoggedIn():
				fmt.Fprintln(w, helpUser)
			default:
				fmt.Fprintln(w, helpGuest)
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "health":
			cmdErr = a.Health(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		case "logout", "whoami", "s", "search", "l", "list", "image":
			if !a.isLoggedIn() {
				fmt.Fprintln(w, "Please login first")
				continue
			}
			cmdErr = userCommand(ctx, a, cmd, args, w)

		case "add", "import", "adduser":
			if !a.isAdmin() {
				fmt.Fprintln(w, "Admin role required")
				continue
			}
			cmdErr = adminCommand(ctx, a, cmd, args, w)

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", describeError(cmdErr))
		}
	}
}

func userCommand(ctx context.Context, a execIface, cmd string, args []string, w io.Writer) error {
	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "s", "search":
		if len(args) == 0 {
			fmt.Fprintln(w, "Usage: search <serial>")
			return nil
		}
		return a.Search(ctx, strings.Join(args, " "))
	case "l", "list":
		return a.List(ctx)
	case "image":
		if len(args) != 2 {
			fmt.Fprintln(w, "Usage: image <serial> <file>")
			return nil
		}
		return a.Image(ctx, args[0], args[1])
	}
	return nil
}

func adminCommand(ctx context.Context, a execIface, cmd string, args []string, w io.Writer) error {
	switch cmd {
	case "add":
		return a.Add(ctx)
	case "import":
		if len(args) != 1 {
			fmt.Fprintln(w, "Usage: import <file.xlsx|file.csv>")
			return nil
		}
		return a.Import(ctx, args[0])
	case "adduser":
		return a.AddUser(ctx)
	}
	return nil
}
