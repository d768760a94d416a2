package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newShellCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run an interactive session over the same library",
		Long: `shell reads one command per line, e.g. "loans create 1 4" or
"books add --title 'Dune' --isbn 978-1 --author Herbert --genre SF",
and runs it against the already open library. Type "exit" to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.runShell(cmd)
		},
	}
}

func (s *session) runShell(cmd *cobra.Command) error {
	interactive := false
	if f, ok := s.stdin.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	out := cmd.OutOrStdout()
	if interactive {
		fmt.Fprintln(out, "Welcome to the Lending Library!")
		fmt.Fprintln(out, "Available commands:")
		fmt.Fprintln(out, "  Books:   books add|list|get|update|delete")
		fmt.Fprintln(out, "  Members: members add|list|get|update|delete")
		fmt.Fprintln(out, "  Loans:   loans create|return|delete|get|list|active")
		fmt.Fprintln(out, "  System:  help, exit")
	}

	scanner := bufio.NewScanner(s.stdin)
	for {
		if interactive {
			fmt.Fprint(out, "\n> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "exit", "quit":
			if interactive {
				fmt.Fprintln(out, "Goodbye!")
			}
			return nil
		}

		args, err := splitArgs(line)
		if err == nil && len(args) > 0 && args[0] == "shell" {
			err = usageErr("already in a shell")
		}
		if err == nil {
			root := newRootCmd(s)
			root.SetArgs(args)
			err = root.ExecuteContext(cmd.Context())
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("error:"), err)
		}
	}
	return scanner.Err()
}
