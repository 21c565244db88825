package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/proptalk/internal/chat"
	"github.com/zulandar/proptalk/internal/conversation"
	"github.com/zulandar/proptalk/internal/suggest"
	"github.com/zulandar/proptalk/internal/tui"
	"golang.org/x/term"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		plain      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the property assistant",
		Long: "Opens the interactive chat with a map of the properties under discussion. " +
			"When stdin is not a terminal, or with --plain, lines are read from stdin and replies printed to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, plain)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "proptalk.yaml", "path to proptalk config file")
	cmd.Flags().BoolVar(&plain, "plain", false, "line mode even on a terminal")
	return cmd
}

func runChat(cmd *cobra.Command, configPath string, plain bool) error {
	interactive := !plain && isTerminal(cmd.InOrStdin())

	a, err := newApp(appOpts{configPath: configPath, quiet: interactive, withCache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if !interactive {
		client, err := a.newClient(nil)
		if err != nil {
			return err
		}
		if err := client.Start(ctx); err != nil {
			return err
		}
		defer client.Close()
		return runLineChat(ctx, client, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	lib := tui.NewTermLibrary()
	client, err := a.newClient(lib)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()
	return tui.Run(ctx, client, lib)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runLineChat reads one message per line until EOF or /quit. /reset starts
// a new conversation.
func runLineChat(ctx context.Context, client *chat.Client, in io.Reader, out io.Writer) error {
	var lastID int64
	flush := func() {
		for _, m := range client.Messages() {
			if m.ID <= lastID {
				continue
			}
			lastID = m.ID
			if m.Role == conversation.RoleUser {
				continue
			}
			printMessage(out, m)
		}
		if chips := client.Suggestions(); len(chips) > 0 {
			stripped := make([]string, len(chips))
			for i, c := range chips {
				stripped[i] = suggest.Strip(c)
			}
			fmt.Fprintf(out, "Suggestions: %s\n", strings.Join(stripped, " | "))
		}
	}
	flush()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := client.Reset(ctx); err != nil {
				fmt.Fprintf(out, "warning: %v\n", err)
			}
			client.Welcome()
		default:
			if err := client.Send(ctx, line); err != nil {
				return err
			}
			client.Wait()
		}
		flush()
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func printMessage(out io.Writer, m conversation.Message) {
	fmt.Fprintf(out, "\n%s\n", m.Text)
	for _, p := range m.Properties {
		line := "  - " + p.Name
		if p.Location != "" {
			line += " (" + p.Location + ")"
		}
		if p.Price != "" {
			line += ", ₹" + p.Price + " lakhs"
		}
		fmt.Fprintln(out, line)
	}
	for _, img := range m.Images {
		fmt.Fprintf(out, "  [image] %s\n", img)
	}
}
